// Package openapi renders a resolved catalog as an OpenAPI 3 document.
package openapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/samber/lo"

	"github.com/broady/restcat"
)

// Extension keys attached to exported operations.
const (
	ExtFamily      = "x-restcat-family"
	ExtPassthrough = "x-restcat-passthrough"
	ExtValidation  = "x-restcat-validation"
)

const formContentType = "application/x-www-form-urlencoded"

// Options sets the document's info block.
type Options struct {
	Title   string
	Version string
}

// FamilyInfo is the value stored under ExtFamily for each parameter family.
type FamilyInfo struct {
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
	Required bool   `json:"required,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Export builds a document with one operation per endpoint method. Path
// placeholders become path parameters; parameters go to the query for
// bodiless methods and to a form body otherwise. Methods OpenAPI cannot
// express are skipped.
func Export(e *restcat.Engine, opts Options) (*openapi3.T, error) {
	if opts.Title == "" {
		opts.Title = "REST catalog"
	}
	if opts.Version == "" {
		opts.Version = "0.0.0"
	}
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: opts.Title, Version: opts.Version},
		Paths:   openapi3.NewPaths(),
	}

	cat := e.Catalog()
	for _, template := range cat.Templates() {
		ep, _ := cat.Endpoint(template)
		item := &openapi3.PathItem{}
		for _, method := range ep.MethodNames() {
			if !supportedMethods[method] {
				continue
			}
			d, err := e.Describe(template, method)
			if err != nil {
				return nil, fmt.Errorf("exporting %s %s: %w", method, template, err)
			}
			item.SetOperation(method, operation(d))
		}
		if len(item.Operations()) > 0 {
			doc.Paths.Set("/"+template, item)
		}
	}
	return doc, nil
}

func operation(d *restcat.Description) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = operationID(d.Method, d.Template)
	op.Summary = d.Summary
	op.Tags = []string{strings.SplitN(d.Template, "/", 2)[0]}

	for _, pv := range d.PathVars {
		p := openapi3.NewPathParameter(pv.Name).
			WithSchema(openapi3.NewStringSchema()).
			WithDescription(pathVarDescription(pv))
		op.AddParameter(p)
	}

	var (
		families    []FamilyInfo
		passthrough bool
		body        = openapi3.NewObjectSchema()
		inBody      = restcat.SendsBody(d.Method)
	)
	for _, pi := range d.Params {
		switch {
		case pi.Passthrough:
			passthrough = true
			continue
		case pi.Family:
			families = append(families, FamilyInfo{
				Name:     pi.Name,
				Datatype: pi.Datatype,
				Required: pi.Required,
				Summary:  pi.Summary,
			})
			continue
		}
		s := paramSchema(pi)
		if pi.Validation != "" {
			s.Extensions = map[string]any{ExtValidation: pi.Validation}
		}
		if inBody {
			body.WithProperty(pi.Name, s)
			if pi.Required {
				body.Required = append(body.Required, pi.Name)
			}
			continue
		}
		op.AddParameter(openapi3.NewQueryParameter(pi.Name).
			WithSchema(s).
			WithRequired(pi.Required).
			WithDescription(pi.Summary))
	}
	open := passthrough || len(families) > 0
	if open {
		op.Extensions = make(map[string]any)
		if passthrough {
			op.Extensions[ExtPassthrough] = true
		}
		if len(families) > 0 {
			op.Extensions[ExtFamily] = families
		}
	}
	if inBody && (len(body.Properties) > 0 || open) {
		body.AdditionalProperties = openapi3.AdditionalProperties{Has: openapi3.BoolPtr(open)}
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithContent(openapi3.Content{
			formContentType: openapi3.NewMediaType().WithSchema(body),
		})}
	}

	op.Responses = openapi3.NewResponsesWithCapacity(len(d.Returns) + 1)
	for _, code := range lo.Keys(d.Returns) {
		summary := d.Returns[code]
		if summary == "" {
			summary = http.StatusText(code)
		}
		if summary == "" {
			summary = "Status " + strconv.Itoa(code)
		}
		op.Responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(summary)})
	}
	if op.Responses.Len() == 0 {
		op.Responses.Set("default", &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Undocumented response")})
	}
	return op
}

func paramSchema(pi restcat.ParamInfo) *openapi3.Schema {
	var s *openapi3.Schema
	switch pi.Datatype {
	case restcat.DatatypeNumber:
		s = openapi3.NewFloat64Schema()
		if f, err := strconv.ParseFloat(strings.TrimSpace(pi.Default), 64); err == nil {
			s.Default = f
		}
	case restcat.DatatypeBoolean:
		s = openapi3.NewBoolSchema()
		if b, ok := restcat.ParseFlag(pi.Default); ok {
			s.Default = b
		}
	case restcat.DatatypeEnum:
		s = openapi3.NewStringSchema()
		if len(pi.Enum) > 0 {
			s.Enum = lo.ToAnySlice(pi.Enum)
			if lo.Contains(pi.Enum, pi.Default) {
				s.Default = pi.Default
			}
		}
	default:
		s = openapi3.NewStringSchema()
		if pi.Default != "" {
			s.Default = pi.Default
		}
	}
	s.Description = pi.Summary
	return s
}

func pathVarDescription(pv restcat.PathVarInfo) string {
	if pv.Required {
		return pv.Summary
	}
	if pv.Summary == "" {
		return `Optional; "-" when omitted.`
	}
	return pv.Summary + ` Optional; "-" when omitted.`
}

// operationID derives a stable, unique identifier such as
// "post_apps_local_name".
func operationID(method, template string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	b.WriteByte('_')
	for _, r := range template {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '{' || r == '}':
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
