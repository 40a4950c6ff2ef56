package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	ctx := map[string]interface{}{"env": "prod", "version": "1.2.3"}

	first := Fingerprint(42, "db connection lost", ctx)
	second := Fingerprint(42, "db connection lost", ctx)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprintContextOrderIndependent(t *testing.T) {
	a := map[string]interface{}{
		"env":     "prod",
		"region":  "cn-hangzhou",
		"nested":  map[string]interface{}{"b": 2, "a": 1},
		"version": "1.2.3",
	}
	b := map[string]interface{}{
		"version": "1.2.3",
		"nested":  map[string]interface{}{"a": 1, "b": 2},
		"region":  "cn-hangzhou",
		"env":     "prod",
	}

	assert.Equal(t, Fingerprint(7, "timeout", a), Fingerprint(7, "timeout", b))
}

func TestFingerprintDistinct(t *testing.T) {
	ctx := map[string]interface{}{"env": "prod"}

	base := Fingerprint(1, "timeout", ctx)

	assert.NotEqual(t, base, Fingerprint(2, "timeout", ctx), "different application")
	assert.NotEqual(t, base, Fingerprint(1, "panic", ctx), "different message")
	assert.NotEqual(t, base, Fingerprint(1, "timeout", map[string]interface{}{"env": "dev"}), "different context")
}

func TestFingerprintNilAndEmptyContext(t *testing.T) {
	// nil 与空 map 的规范化结果应一致
	assert.Equal(t,
		Fingerprint(1, "oops", nil),
		Fingerprint(1, "oops", map[string]interface{}{}))
}

func TestCanonicalJSONNested(t *testing.T) {
	v := map[string]interface{}{
		"b": []interface{}{map[string]interface{}{"y": 1, "x": 2}},
		"a": "1",
	}

	assert.Equal(t, `{"a":"1","b":[{"x":2,"y":1}]}`, CanonicalJSON(v))
}
