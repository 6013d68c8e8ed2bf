package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/broady/restcat"
	"github.com/broady/restcat/history"
	"github.com/broady/restcat/transport"
)

const noneString = "<none>"

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orNone(s string) string {
	if s == "" {
		return noneString
	}
	return s
}

func printEndpoints(list []restcat.EndpointSummary) {
	w := newTable()
	defer w.Flush()
	fmt.Fprintln(w, "METHOD\tTEMPLATE\tSUMMARY")
	for _, es := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", es.Method, es.Template, firstLine(es.Summary))
	}
}

func printDescription(d *restcat.Description) {
	fmt.Fprintf(stdout, "%s %s\n", d.Method, d.Template)
	if d.Summary != "" {
		fmt.Fprintf(stdout, "  %s\n", firstLine(d.Summary))
	}

	w := newTable()
	if len(d.PathVars) > 0 {
		fmt.Fprintln(w, "\nPATH\tREQUIRED\tSUMMARY")
		for _, pv := range d.PathVars {
			fmt.Fprintf(w, "{%s}\t%t\t%s\n", pv.Name, pv.Required, firstLine(pv.Summary))
		}
	}
	fmt.Fprintln(w, "\nPARAM\tTYPE\tREQUIRED\tDEFAULT\tSUMMARY")
	for _, p := range d.Params {
		typ := p.Datatype
		switch {
		case len(p.Enum) > 0:
			typ = "Enum(" + strings.Join(p.Enum, "|") + ")"
		case p.Passthrough:
			typ = "any"
		}
		name := p.Name
		if p.Inherited {
			name += " ^"
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", name, typ, p.Required, orNone(p.Default), firstLine(p.Summary))
	}
	if len(d.Returns) > 0 {
		fmt.Fprintln(w, "\nSTATUS\tSUMMARY")
		codes := lo.Keys(d.Returns)
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "%d\t%s\n", code, firstLine(d.Returns[code]))
		}
	}
	w.Flush()
}

func printRequest(req *restcat.Request, base string) error {
	u, err := req.URL(base)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s\n", req.Method, u)
	if req.HasBody() {
		fmt.Fprintf(stdout, "Content-Type: %s\n\n%s\n", req.ContentType(), req.EncodedBody())
	}
	return nil
}

func printViolations(vs []restcat.Violation) {
	w := newTable()
	defer w.Flush()
	fmt.Fprintln(w, "PARAM\tCODE\tMESSAGE")
	for _, v := range vs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.Param, v.Code, v.Message)
	}
}

func printCall(c restcat.Classification, resp *transport.Response) {
	summary := c.Summary
	if !c.Documented {
		summary = "undocumented status"
	}
	fmt.Fprintf(stdout, "%d %s (%s) in %s, %s", c.Status, c.Outcome, summary,
		resp.Duration.Round(time.Millisecond), humanize.Bytes(uint64(len(resp.Body))))
	if resp.Truncated {
		fmt.Fprint(stdout, ", truncated")
	}
	if c.Outcome.Retryable() {
		fmt.Fprint(stdout, ", retryable")
	}
	fmt.Fprintln(stdout)
	if len(resp.Body) > 0 {
		fmt.Fprintf(stdout, "\n%s\n", resp.Body)
	}
}

func printHistory(entries []history.Entry, now time.Time) {
	w := newTable()
	defer w.Flush()
	fmt.Fprintln(w, "WHEN\tMETHOD\tPATH\tSTATUS\tOUTCOME\tDURATION")
	for _, e := range entries {
		status, outcome := noneString, orNone(e.Outcome)
		if e.Status != 0 {
			status = strconv.Itoa(e.Status)
		}
		switch {
		case e.Violations > 0:
			outcome = humanize.Comma(int64(e.Violations)) + " violation(s)"
		case e.Error != "":
			outcome = "error: " + e.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.RelTime(e.Time, now, "ago", "from now"), e.Method, orNone(e.Path), status, outcome,
			e.Duration.Round(time.Millisecond))
	}
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}
