package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when the CRM sink is missing or not marked
// ready in the sources config.
var ErrNotConfigured = errors.New("crm sink not configured")

// Config holds the CRM sink section of sources.yaml.
type Config struct {
	URL    string `yaml:"url"`
	DB     string `yaml:"db"`
	User   string `yaml:"user"`
	APIKey string `yaml:"api_key"`
	Status string `yaml:"status"` // only "ready" enables the sink
}

// Ready reports whether the config names a usable sink.
func (c Config) Ready() bool {
	return c.Status == "ready" && c.URL != "" && c.DB != "" && c.User != ""
}

// Odoo talks to an Odoo instance over its JSON-RPC endpoint.
type Odoo struct {
	cfg    Config
	client *http.Client
	uid    int64 // 0 until authenticated
}

// NewOdoo creates an Odoo connector from config. The connector is lazy:
// authentication happens on first use.
func NewOdoo(cfg Config) *Odoo {
	return &Odoo{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ready reports whether the sink config is present and marked ready.
func (o *Odoo) Ready() bool { return o.cfg.Ready() }

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	Service string        `json:"service"`
	Method  string        `json:"method"`
	Args    []interface{} `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	} `json:"error,omitempty"`
}

func (o *Odoo) call(ctx context.Context, service, method string, args ...interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.cfg.URL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc call returned status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		msg := rpcResp.Error.Data.Message
		if msg == "" {
			msg = rpcResp.Error.Message
		}
		return nil, fmt.Errorf("rpc error: %s", msg)
	}
	return rpcResp.Result, nil
}

// authenticate resolves the user id for subsequent execute_kw calls.
func (o *Odoo) authenticate(ctx context.Context) error {
	if o.uid != 0 {
		return nil
	}
	if !o.Ready() {
		return ErrNotConfigured
	}
	result, err := o.call(ctx, "common", "authenticate",
		o.cfg.DB, o.cfg.User, o.cfg.APIKey, map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	var uid int64
	if err := json.Unmarshal(result, &uid); err != nil || uid == 0 {
		return fmt.Errorf("authentication rejected for user %s", o.cfg.User)
	}
	o.uid = uid
	return nil
}

// executeKw invokes a model method through the object service.
func (o *Odoo) executeKw(ctx context.Context, model, method string, args interface{}) (json.RawMessage, error) {
	if err := o.authenticate(ctx); err != nil {
		return nil, err
	}
	return o.call(ctx, "object", "execute_kw",
		o.cfg.DB, o.uid, o.cfg.APIKey, model, method, args)
}

// CreateContact stores a contact in Odoo and returns its record id.
func (o *Odoo) CreateContact(ctx context.Context, c NewContact) (int64, error) {
	vals := map[string]interface{}{"name": c.Name}
	if c.Email != "" {
		vals["email"] = c.Email
	}
	if c.Phone != "" {
		vals["phone"] = c.Phone
	}
	if c.Company != "" {
		vals["company_name"] = c.Company
	}
	if c.Notes != "" {
		vals["comment"] = c.Notes
	}
	if c.Catcode != "" {
		vals["ref"] = c.Catcode
	}

	result, err := o.executeKw(ctx, "res.partner", "create", []interface{}{vals})
	if err != nil {
		return 0, fmt.Errorf("failed to create contact: %w", err)
	}
	var id int64
	if err := json.Unmarshal(result, &id); err != nil {
		// Some Odoo versions answer create with a single-element array.
		var ids []int64
		if err2 := json.Unmarshal(result, &ids); err2 != nil || len(ids) == 0 {
			return 0, fmt.Errorf("unexpected create response: %s", result)
		}
		id = ids[0]
	}
	return id, nil
}

// FindByEmail returns ids of existing contacts with the given email.
func (o *Odoo) FindByEmail(ctx context.Context, email string) ([]int64, error) {
	domain := []interface{}{[]interface{}{"email", "=", email}}
	result, err := o.executeKw(ctx, "res.partner", "search", []interface{}{domain})
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	var ids []int64
	if err := json.Unmarshal(result, &ids); err != nil {
		return nil, fmt.Errorf("unexpected search response: %s", result)
	}
	return ids, nil
}
