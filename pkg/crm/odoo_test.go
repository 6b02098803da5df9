package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyConfig(url string) Config {
	return Config{URL: url, DB: "abra", User: "cobox", APIKey: "k", Status: "ready"}
}

func TestConfig_Ready(t *testing.T) {
	assert.True(t, readyConfig("http://x").Ready())
	assert.False(t, Config{}.Ready())
	assert.False(t, Config{URL: "http://x", DB: "d", User: "u", Status: "pending"}.Ready())
	assert.False(t, Config{URL: "http://x", DB: "d", Status: "ready"}.Ready())
}

func TestNullConnector(t *testing.T) {
	var c Connector = NullConnector{}
	assert.False(t, c.Ready())
	_, err := c.CreateContact(context.Background(), NewContact{Name: "Jane"})
	assert.True(t, errors.Is(err, ErrNotConfigured))
	_, err = c.FindByEmail(context.Background(), "jane@x.com")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

// fakeOdoo answers jsonrpc calls the way an Odoo server would.
func fakeOdoo(t *testing.T, handle func(service, method string, args []interface{}) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jsonrpc", r.URL.Path)
		var req struct {
			Params struct {
				Service string        `json:"service"`
				Method  string        `json:"method"`
				Args    []interface{} `json:"args"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result := handle(req.Params.Service, req.Params.Method, req.Params.Args)
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "result": result})
	}))
}

func TestOdoo_CreateContact(t *testing.T) {
	var createdVals map[string]interface{}
	srv := fakeOdoo(t, func(service, method string, args []interface{}) interface{} {
		switch {
		case service == "common" && method == "authenticate":
			return 7
		case service == "object" && method == "execute_kw":
			// args: db, uid, key, model, method, methodArgs
			require.Equal(t, "res.partner", args[3])
			require.Equal(t, "create", args[4])
			methodArgs := args[5].([]interface{})
			createdVals = methodArgs[0].(map[string]interface{})
			return 42
		}
		t.Fatalf("unexpected call %s.%s", service, method)
		return nil
	})
	defer srv.Close()

	o := NewOdoo(readyConfig(srv.URL))
	id, err := o.CreateContact(context.Background(), NewContact{
		Name: "Jane Doe", Email: "jane@x.com", Company: "Acme", Catcode: "a0010101",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "Jane Doe", createdVals["name"])
	assert.Equal(t, "jane@x.com", createdVals["email"])
	assert.Equal(t, "Acme", createdVals["company_name"])
	assert.Equal(t, "a0010101", createdVals["ref"])
	_, hasPhone := createdVals["phone"]
	assert.False(t, hasPhone, "empty fields must be omitted")
}

func TestOdoo_FindByEmail(t *testing.T) {
	srv := fakeOdoo(t, func(service, method string, args []interface{}) interface{} {
		if service == "common" {
			return 7
		}
		return []int64{11, 12}
	})
	defer srv.Close()

	o := NewOdoo(readyConfig(srv.URL))
	ids, err := o.FindByEmail(context.Background(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, ids)
}

func TestOdoo_NotReady(t *testing.T) {
	o := NewOdoo(Config{})
	_, err := o.CreateContact(context.Background(), NewContact{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestOdoo_AuthRejected(t *testing.T) {
	srv := fakeOdoo(t, func(service, method string, args []interface{}) interface{} {
		return false // Odoo answers false on bad credentials
	})
	defer srv.Close()

	o := NewOdoo(readyConfig(srv.URL))
	_, err := o.FindByEmail(context.Background(), "jane@x.com")
	require.Error(t, err)
}
