package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "Jose Garcia", Name("  José   García "))
	assert.Equal(t, "O'Brien", Name("O'Brien"))
	assert.Equal(t, "", Name("   "))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", Email(" A@X.COM "))
	assert.Equal(t, "", Email(""))
}

func TestZip(t *testing.T) {
	assert.Equal(t, "90210", Zip("90210"))
	assert.Equal(t, "90210", Zip("90210-1234"))
	assert.Equal(t, "90210", Zip(" 90210 "))
	assert.Equal(t, "", Zip("9021"))
	assert.Equal(t, "", Zip(""))
}
