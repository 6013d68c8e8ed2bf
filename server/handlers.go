package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/broady/restcat"
	"github.com/broady/restcat/history"
	"github.com/broady/restcat/openapi"
)

type listQuery struct {
	Q      string `schema:"q"`
	Prefix string `schema:"prefix"`
	Method string `schema:"method" validate:"omitempty,alpha,max=10"`
}

type describeQuery struct {
	Template string `schema:"template" validate:"required"`
	Method   string `schema:"method" validate:"required,alpha,max=10"`
}

// Params accepts JSON parameter values as a string, number, boolean or an
// array of those, so {"count": 10, "field": ["a", "b"]} is valid.
type Params url.Values

func (p *Params) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Params, len(raw))
	for name, msg := range raw {
		var list []json.RawMessage
		if err := json.Unmarshal(msg, &list); err != nil {
			list = []json.RawMessage{msg}
		}
		for _, item := range list {
			v, err := scalar(item)
			if err != nil {
				return fmt.Errorf("param %q: %w", name, err)
			}
			out[name] = append(out[name], v)
		}
	}
	*p = out
	return nil
}

func scalar(msg json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("unsupported value %s", msg)
	}
}

// prepareRequest is the body of /api/prepare and /api/call.
type prepareRequest struct {
	Template string            `json:"template" validate:"required"`
	Method   string            `json:"method" validate:"required,alpha,max=10"`
	Path     map[string]string `json:"path"`
	Params   Params            `json:"params"`
}

type prepareResult struct {
	Request *restcat.Request `json:"request"`
	URL     string           `json:"url,omitempty"`
	Body    string           `json:"body,omitempty"`
}

type callResult struct {
	Request        *restcat.Request       `json:"request"`
	Classification restcat.Classification `json:"classification"`
	Retryable      bool                   `json:"retryable"`
	Duration       string                 `json:"duration"`
	Truncated      bool                   `json:"truncated,omitempty"`
	Body           any                    `json:"body,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.logger, map[string]any{
		"status":    "ok",
		"endpoints": s.Engine().Catalog().Len(),
	})
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	var q listQuery
	if err := decodeQuery(r, &q); err != nil {
		s.writeError(w, err)
		return
	}
	cat := s.Engine().Catalog()
	results := cat.Filter(q.Prefix, q.Method)
	if q.Q != "" {
		hits := lo.SliceToMap(cat.Search(q.Q), func(es restcat.EndpointSummary) (string, bool) {
			return es.Method + " " + es.Template, true
		})
		results = lo.Filter(results, func(es restcat.EndpointSummary, _ int) bool {
			return hits[es.Method+" "+es.Template]
		})
	}
	if results == nil {
		results = []restcat.EndpointSummary{}
	}
	writeResult(w, s.logger, results)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var q describeQuery
	if err := decodeQuery(r, &q); err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.Engine().Describe(q.Template, q.Method)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeResult(w, s.logger, d)
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var body prepareRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := s.prepare(s.Engine(), body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res := prepareResult{Request: req, Body: req.EncodedBody()}
	if s.client != nil {
		if u, err := req.URL(s.client.BaseURL); err == nil {
			res.URL = u.String()
		}
	}
	writeResult(w, s.logger, res)
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var body prepareRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if s.client == nil {
		s.writeError(w, restcat.NewError(restcat.CodeUnavailable, "no target is configured"))
		return
	}

	e := s.Engine()
	entry := &history.Entry{Template: body.Template, Method: strings.ToUpper(body.Method)}
	req, err := s.prepare(e, body)
	if err != nil {
		var verr *restcat.ValidationError
		if errors.As(err, &verr) {
			entry.Violations = len(verr.Violations)
			entry.Error = "rejected before sending"
			s.record(r.Context(), entry)
		}
		s.writeError(w, err)
		return
	}
	entry.Path = req.Path

	start := time.Now()
	resp, err := s.client.Do(r.Context(), req)
	if err != nil {
		entry.Duration = time.Since(start)
		entry.Error = err.Error()
		s.record(r.Context(), entry)
		s.metrics.ObserveCallError(req.Method, entry.Duration)
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			err = restcat.Errorf(restcat.CodeUnavailable, "calling target: %v", err)
		}
		s.writeError(w, err)
		return
	}

	c, err := e.Classify(body.Template, body.Method, resp.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	entry.Status = resp.Status
	entry.Outcome = string(c.Outcome)
	entry.Duration = resp.Duration
	s.record(r.Context(), entry)
	s.metrics.ObserveCall(req.Method, c.Outcome, resp.Duration)

	res := callResult{
		Request:        req,
		Classification: c,
		Retryable:      c.Outcome.Retryable(),
		Duration:       resp.Duration.String(),
		Truncated:      resp.Truncated,
	}
	if json.Valid(resp.Body) {
		res.Body = json.RawMessage(resp.Body)
	} else if len(resp.Body) > 0 {
		res.Body = string(resp.Body)
	}
	writeResult(w, s.logger, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, restcat.NewError(restcat.CodeUnavailable, "history is disabled"))
		return
	}
	var q history.Query
	if err := decodeQuery(r, &q); err != nil {
		s.writeError(w, err)
		return
	}
	entries, err := s.history.List(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeResult(w, s.logger, entries)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := openapi.Export(s.Engine(), s.info)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, doc); err != nil {
		s.logger.Error("failed to encode openapi document", "error", err)
	}
}

func (s *Server) prepare(e *restcat.Engine, body prepareRequest) (*restcat.Request, error) {
	req, err := e.Prepare(body.Template, body.Method, body.Path, url.Values(body.Params))
	var verr *restcat.ValidationError
	switch {
	case err == nil:
		s.metrics.ObserveValidation(nil)
	case errors.As(err, &verr):
		s.metrics.ObserveValidation(verr.Violations)
	}
	return req, err
}

func (s *Server) record(ctx context.Context, e *history.Entry) {
	if s.history == nil {
		return
	}
	// A canceled request still gets its history entry.
	if err := s.history.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error("failed to record call", "error", err)
	}
}

func decodeQuery(r *http.Request, dst any) error {
	if err := schemaDecoder.Decode(dst, r.URL.Query()); err != nil {
		return restcat.Errorf(restcat.CodeInvalidArgument, "failed to decode query: %v", err)
	}
	return validate.Struct(dst)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return restcat.Errorf(restcat.CodeInvalidArgument, "failed to decode body: %v", err)
	}
	return validate.Struct(dst)
}
