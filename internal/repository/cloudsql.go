package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listingsearch/internal/apperror"
	"listingsearch/internal/config"
	"listingsearch/internal/model"
	"listingsearch/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	sqlAdminScope = "https://www.googleapis.com/auth/sqlservice.admin"
	tokenLifetime = time.Hour
)

// CloudSQLBackend runs queries through the Cloud SQL Admin executeSql API,
// authorized with a bearer token minted from a service-account key.
type CloudSQLBackend struct {
	cfg        config.DatabaseConfig
	httpClient *http.Client
	tokens     *utils.Lazy[oauth2.TokenSource]
	logger     *zap.Logger
}

// CloudSQLOption customizes a CloudSQLBackend
type CloudSQLOption func(*CloudSQLBackend)

// WithTokenSource replaces the service-account token exchange
func WithTokenSource(ts oauth2.TokenSource) CloudSQLOption {
	return func(b *CloudSQLBackend) {
		b.tokens = utils.NewLazy(func(context.Context) (oauth2.TokenSource, error) {
			return ts, nil
		})
	}
}

// WithHTTPClient replaces the HTTP client used for query calls
func WithHTTPClient(client *http.Client) CloudSQLOption {
	return func(b *CloudSQLBackend) {
		b.httpClient = client
	}
}

// NewCloudSQLBackend creates the management-API backend
func NewCloudSQLBackend(cfg config.DatabaseConfig, logger *zap.Logger, opts ...CloudSQLOption) *CloudSQLBackend {
	timeout := time.Duration(cfg.Timeout) * time.Second
	b := &CloudSQLBackend{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	b.tokens = utils.NewLazy(func(ctx context.Context) (oauth2.TokenSource, error) {
		return serviceAccountTokenSource(ctx, cfg.ServiceAccountJSON, timeout)
	})
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend name
func (b *CloudSQLBackend) Name() string { return "cloudsql-api" }

// Dialect returns T-SQL; the managed instance is SQL Server
func (b *CloudSQLBackend) Dialect() model.Dialect { return model.DialectTSQL }

// Close is a no-op; tokens are held in memory only
func (b *CloudSQLBackend) Close() error { return nil }

// serviceAccountTokenSource signs a JWT assertion with the service-account
// key and exchanges it for one-hour bearer tokens. The returned source
// reuses a token until it expires.
func serviceAccountTokenSource(ctx context.Context, keyJSON string, timeout time.Duration) (oauth2.TokenSource, error) {
	if strings.TrimSpace(keyJSON) == "" {
		return nil, apperror.Configuration("Missing database configuration: DB_SERVICE_ACCOUNT_JSON")
	}

	conf, err := google.JWTConfigFromJSON([]byte(keyJSON), sqlAdminScope)
	if err != nil {
		return nil, apperror.Configuration("invalid service account key: %v", err)
	}
	conf.Expires = tokenLifetime

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	return conf.TokenSource(ctx), nil
}

type executeSQLRequest struct {
	Database     string `json:"database"`
	User         string `json:"user"`
	SQLStatement string `json:"sqlStatement"`
}

type executeSQLResponse struct {
	Results []struct {
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Rows []struct {
			Values []struct {
				Value     *string `json:"value"`
				NullValue bool    `json:"nullValue"`
			} `json:"values"`
		} `json:"rows"`
	} `json:"results"`
}

// Execute posts query to the executeSql endpoint
func (b *CloudSQLBackend) Execute(ctx context.Context, query string) ([]model.DbRow, error) {
	project, instance, err := b.instancePath()
	if err != nil {
		return nil, err
	}

	ts, err := b.tokens.Get(ctx)
	if err != nil {
		return nil, err
	}
	token, err := ts.Token()
	if err != nil {
		if apperror.IsTimeout(err) {
			return nil, apperror.Timeout("token exchange", err)
		}
		return nil, apperror.Execution("Failed to obtain access token", err)
	}

	reqBody, err := json.Marshal(executeSQLRequest{
		Database:     b.cfg.Name,
		User:         b.cfg.User,
		SQLStatement: query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/instances/%s/executeSql",
		strings.TrimRight(b.cfg.APIEndpoint, "/"), project, instance)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(httpReq)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.ExecutionStatus("Cloud SQL API", resp.StatusCode, string(body))
	}

	var result executeSQLResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	rows := make([]model.DbRow, 0)
	if len(result.Results) == 0 {
		return rows, nil
	}
	set := result.Results[0]
	for _, r := range set.Rows {
		row := make(model.DbRow, len(set.Columns))
		for i, col := range set.Columns {
			if i >= len(r.Values) || r.Values[i].NullValue || r.Values[i].Value == nil {
				row[col.Name] = nil
				continue
			}
			row[col.Name] = *r.Values[i].Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// instancePath splits "project:region:instance" (or "project:instance")
// and checks the remaining required parameters.
func (b *CloudSQLBackend) instancePath() (string, string, error) {
	var missing []string
	if b.cfg.Instance == "" {
		missing = append(missing, "DB_INSTANCE")
	}
	if b.cfg.User == "" {
		missing = append(missing, "DB_USER")
	}
	if b.cfg.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return "", "", apperror.Configuration("Missing database configuration: %s", strings.Join(missing, ", "))
	}

	parts := strings.Split(b.cfg.Instance, ":")
	switch len(parts) {
	case 2:
		return parts[0], parts[1], nil
	case 3:
		return parts[0], parts[2], nil
	default:
		return "", "", apperror.Configuration("invalid instance connection name %q", b.cfg.Instance)
	}
}
