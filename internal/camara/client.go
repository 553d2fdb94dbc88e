// Package camara is a read-only client for the Câmara dos Deputados open data
// API (Dados Abertos, v2).
package camara

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

// DefaultBaseURL is the public Dados Abertos endpoint.
const DefaultBaseURL = "https://dadosabertos.camara.leg.br/api/v2"

const maxBodyBytes = 8 << 20

// ErrNotFound is matched by errors for resources the API does not know.
var ErrNotFound = errors.New("camara: not found")

// StatusError is returned for non-200 responses.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("camara %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Is makes a 404 StatusError match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client fetches propositions, roll-calls and procedural history.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithBaseURL points the client at another API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewClient creates a new Câmara client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListParams selects a page of propositions.
type ListParams struct {
	SiglaTipo  string
	Ano        int
	Itens      int
	OrdenarPor string
	Ordem      string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.SiglaTipo != "" {
		q.Set("siglaTipo", p.SiglaTipo)
	}
	if p.Ano > 0 {
		q.Set("ano", strconv.Itoa(p.Ano))
	}
	if p.Itens > 0 {
		q.Set("itens", strconv.Itoa(p.Itens))
	}
	if p.OrdenarPor != "" {
		q.Set("ordenarPor", p.OrdenarPor)
	}
	if p.Ordem != "" {
		q.Set("ordem", p.Ordem)
	}
	return q
}

// ListProposicoes returns the listing page. Listing records carry only the
// identifying fields and the ementa.
func (c *Client) ListProposicoes(ctx context.Context, params ListParams) ([]bill.Record, error) {
	var env proposicoesEnvelope
	if err := c.get(ctx, "/proposicoes", params.values(), proposicoesSchema, &env); err != nil {
		return nil, err
	}
	records := make([]bill.Record, 0, len(env.Dados))
	for _, p := range env.Dados {
		records = append(records, p.record())
	}
	return records, nil
}

// GetProposicao returns the full record of one proposition.
func (c *Client) GetProposicao(ctx context.Context, id int64) (bill.Record, error) {
	var env proposicaoEnvelope
	path := "/proposicoes/" + strconv.FormatInt(id, 10)
	if err := c.get(ctx, path, nil, proposicaoSchema, &env); err != nil {
		return bill.Record{}, err
	}
	return env.Dados.record(), nil
}

// ListVotacoes returns the roll-calls of a proposition, newest first, without
// their votes.
func (c *Client) ListVotacoes(ctx context.Context, id int64) ([]bill.RollCall, error) {
	var env votacoesEnvelope
	path := "/proposicoes/" + strconv.FormatInt(id, 10) + "/votacoes"
	if err := c.get(ctx, path, nil, votacoesSchema, &env); err != nil {
		return nil, err
	}
	rollCalls := make([]bill.RollCall, 0, len(env.Dados))
	for _, v := range env.Dados {
		rollCalls = append(rollCalls, v.rollCall())
	}
	return rollCalls, nil
}

// ListVotos returns the individual votes of a roll-call.
func (c *Client) ListVotos(ctx context.Context, votacaoID string) ([]bill.VoterEntry, error) {
	var env votosEnvelope
	path := "/votacoes/" + url.PathEscape(votacaoID) + "/votos"
	if err := c.get(ctx, path, nil, votosSchema, &env); err != nil {
		return nil, err
	}
	entries := make([]bill.VoterEntry, 0, len(env.Dados))
	for _, v := range env.Dados {
		entries = append(entries, v.entry())
	}
	return entries, nil
}

// ListTramitacoes returns the procedural timeline, newest first.
func (c *Client) ListTramitacoes(ctx context.Context, id int64) ([]bill.Tramitacao, error) {
	var env tramitacoesEnvelope
	path := "/proposicoes/" + strconv.FormatInt(id, 10) + "/tramitacoes"
	q := url.Values{}
	q.Set("ordem", "DESC")
	q.Set("ordenarPor", "dataHora")
	if err := c.get(ctx, path, q, tramitacoesSchema, &env); err != nil {
		return nil, err
	}
	timeline := make([]bill.Tramitacao, 0, len(env.Dados))
	for _, t := range env.Dados {
		timeline = append(timeline, t.tramitacao())
	}
	return timeline, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, schema *gojsonschema.Schema, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	if err := validate(schema, path, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response %s: %w", path, err)
	}
	return nil
}

func truncateBody(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
