package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinioConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "flowgrid",
		SecretKey: "flowgridsecret",
		Bucket:    "artifacts",
	}
	assert.NoError(t, valid.Validate())

	t.Run("scheme in endpoint is rejected", func(t *testing.T) {
		cfg := valid
		cfg.Endpoint = "http://localhost:9000"
		assert.ErrorContains(t, cfg.Validate(), "scheme")
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		for _, mutate := range []func(*MinioConfig){
			func(c *MinioConfig) { c.Endpoint = "" },
			func(c *MinioConfig) { c.AccessKey = "" },
			func(c *MinioConfig) { c.SecretKey = " " },
			func(c *MinioConfig) { c.Bucket = "" },
		} {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		}
	})
}

func TestMinioStore_KeyNamespace(t *testing.T) {
	t.Parallel()

	s := &MinioStore{runID: "run-123"}
	assert.Equal(t, "run-123/coverage1", s.key("coverage1"))
	assert.Equal(t, "coverage1", s.name("run-123/coverage1"))
	// Prefix listing uses the same mapping.
	assert.Equal(t, "run-123/", s.key(""))
}
