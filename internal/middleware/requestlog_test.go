package middleware

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactBodyMasksCredentials(t *testing.T) {
	body := []byte(`{"action":"signIn","email":"a@b.c","password":"hunter2","nested":[{"unify_api_token":"tok"}]}`)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(redactBody(body)), &data))
	assert.Equal(t, "***", data["password"])
	assert.Equal(t, "a@b.c", data["email"])
	nested := data["nested"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "***", nested["unify_api_token"])
}

func TestRedactBodyInvalidJSON(t *testing.T) {
	assert.Equal(t, "[redacted]", redactBody([]byte("not-json")))
}
