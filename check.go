package restcat

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Check verifies the whole catalog: every inherited parameter resolves,
// every validation expression parses and every Enum summary that mentions
// valid values lists them readably. All defects are returned joined; each
// is a *CatalogIntegrityError. A nil result means the catalog is intact.
func (e *Engine) Check(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	report := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, t := range e.cat.templates {
		ep := e.cat.endpoints[t]
		for _, m := range ep.MethodNames() {
			md := ep.Methods[m]
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, err := range e.checkMethod(t, md) {
					report(err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(errs) == 0 {
		e.logger.Debug("catalog check passed", "endpoints", e.cat.Len())
		return nil
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	e.logger.Error("catalog check failed", "defects", len(errs))
	return errors.Join(errs...)
}

func (e *Engine) checkMethod(template string, md *MethodDescriptor) []error {
	var errs []error
	if _, err := e.Schema(template, md.Method); err != nil {
		errs = append(errs, err)
	}
	for _, name := range sortedParamNames(md.Params) {
		spec := md.Params[name]
		if spec.Validation != "" {
			if _, err := e.exprs.Parse(spec.Validation); err != nil {
				errs = append(errs, &CatalogIntegrityError{
					Kind:     MalformedExpression,
					Template: template,
					Method:   md.Method,
					Param:    name,
					Reason:   err.Error(),
				})
			}
		}
		if spec.Kind() == DatatypeEnum {
			if _, present, err := parseEnum(spec.Summary); present && err != nil {
				errs = append(errs, &CatalogIntegrityError{
					Kind:     MalformedEnum,
					Template: template,
					Method:   md.Method,
					Param:    name,
					Reason:   err.Error(),
				})
			}
		}
	}
	return errs
}

func sortedParamNames(params map[string]*ParamSpec) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
