package piper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type PipelineSuite struct {
	suite.Suite
	rec *recorder
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.rec = &recorder{}
}

func (s *PipelineSuite) tracing(name string) ValveFunc[otherQuery, string] {
	return func(ctx context.Context, q otherQuery, next Next[otherQuery, string]) (string, error) {
		s.rec.add(name + ":before")
		out, err := next(ctx, q)
		s.rec.add(name + ":after")
		return out, err
	}
}

func (s *PipelineSuite) handler() HandlerFunc[otherQuery, string] {
	return func(ctx context.Context, q otherQuery) (string, error) {
		s.rec.add("handler")
		return "hello " + q.Name, nil
	}
}

func (s *PipelineSuite) TestNoValvesEqualsHandler() {
	h := s.handler()
	p, err := Compile[otherQuery, string](h)
	s.Require().NoError(err)

	want, wantErr := h.Handle(context.Background(), otherQuery{Name: "a"})
	got, gotErr := p(context.Background(), otherQuery{Name: "a"})
	s.Equal(want, got)
	s.Equal(wantErr, gotErr)
}

func (s *PipelineSuite) TestOnionOrder() {
	p, err := Compile[otherQuery, string](s.handler(), s.tracing("A"), s.tracing("B"), s.tracing("C"))
	s.Require().NoError(err)

	out, err := p(context.Background(), otherQuery{Name: "x"})
	s.Require().NoError(err)
	s.Equal("hello x", out)
	s.Equal([]string{
		"A:before", "B:before", "C:before",
		"handler",
		"C:after", "B:after", "A:after",
	}, s.rec.list())
}

func (s *PipelineSuite) TestShortCircuit() {
	stop := ValveFunc[otherQuery, string](func(ctx context.Context, q otherQuery, next Next[otherQuery, string]) (string, error) {
		s.rec.add("stop")
		return "cached", nil
	})
	p, err := Compile[otherQuery, string](s.handler(), s.tracing("A"), stop, s.tracing("C"))
	s.Require().NoError(err)

	out, err := p(context.Background(), otherQuery{})
	s.Require().NoError(err)
	s.Equal("cached", out)
	s.Equal([]string{"A:before", "stop", "A:after"}, s.rec.list())
}

func (s *PipelineSuite) TestShortCircuitWithError() {
	wantErr := errors.New("denied")
	deny := ValveFunc[otherQuery, string](func(ctx context.Context, q otherQuery, next Next[otherQuery, string]) (string, error) {
		return "", wantErr
	})
	p, err := Compile[otherQuery, string](s.handler(), deny)
	s.Require().NoError(err)

	_, err = p(context.Background(), otherQuery{})
	s.ErrorIs(err, wantErr)
	s.Empty(s.rec.list())
}

func (s *PipelineSuite) TestValveRewritesRequest() {
	upper := ValveFunc[otherQuery, string](func(ctx context.Context, q otherQuery, next Next[otherQuery, string]) (string, error) {
		q.Name = strings.ToUpper(q.Name)
		return next(ctx, q)
	})
	p, err := Compile[otherQuery, string](s.handler(), upper)
	s.Require().NoError(err)

	out, err := p(context.Background(), otherQuery{Name: "bob"})
	s.Require().NoError(err)
	s.Equal("hello BOB", out)
}

func (s *PipelineSuite) TestValveCallsNextMoreThanOnce() {
	var attempts int
	flaky := HandlerFunc[otherQuery, string](func(ctx context.Context, q otherQuery) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	retry := ValveFunc[otherQuery, string](func(ctx context.Context, q otherQuery, next Next[otherQuery, string]) (string, error) {
		var (
			out string
			err error
		)
		for range 5 {
			if out, err = next(ctx, q); err == nil {
				return out, nil
			}
		}
		return out, err
	})
	p, err := Compile[otherQuery, string](flaky, s.tracing("outer"), retry, s.tracing("inner"))
	s.Require().NoError(err)

	out, err := p(context.Background(), otherQuery{})
	s.Require().NoError(err)
	s.Equal("ok", out)
	s.Equal(3, attempts)
	s.Equal([]string{
		"outer:before",
		"inner:before", "inner:after",
		"inner:before", "inner:after",
		"inner:before", "inner:after",
		"outer:after",
	}, s.rec.list())
}

func (s *PipelineSuite) TestInlineValveAmongTypedValves() {
	inline := func(ctx context.Context, q otherQuery, next Next[otherQuery, string]) (string, error) {
		s.rec.add("inline")
		return next(ctx, q)
	}
	p, err := Compile[otherQuery, string](s.handler(), s.tracing("A"), ValveFunc[otherQuery, string](inline))
	s.Require().NoError(err)

	_, err = p(context.Background(), otherQuery{})
	s.Require().NoError(err)
	s.Equal([]string{"A:before", "inline", "handler", "A:after"}, s.rec.list())
}

func (s *PipelineSuite) TestPipelineIsReusable() {
	p, err := Compile[otherQuery, string](s.handler(), s.tracing("A"))
	s.Require().NoError(err)

	for _, name := range []string{"a", "b"} {
		out, err := p(context.Background(), otherQuery{Name: name})
		s.Require().NoError(err)
		s.Equal("hello "+name, out)
	}
	s.Len(s.rec.list(), 6)
}

func (s *PipelineSuite) TestCancellationVisibleToEveryStage() {
	var seen []error
	observe := ValveFunc[otherQuery, string](func(ctx context.Context, q otherQuery, next Next[otherQuery, string]) (string, error) {
		seen = append(seen, ctx.Err())
		return next(ctx, q)
	})
	h := HandlerFunc[otherQuery, string](func(ctx context.Context, q otherQuery) (string, error) {
		seen = append(seen, ctx.Err())
		return "", ctx.Err()
	})
	p, err := Compile[otherQuery, string](h, observe, observe)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p(ctx, otherQuery{})
	s.ErrorIs(err, context.Canceled)
	s.Len(seen, 3)
	for _, e := range seen {
		s.ErrorIs(e, context.Canceled)
	}
}

func (s *PipelineSuite) TestNilHandler() {
	_, err := Compile[otherQuery, string](nil)
	s.ErrorIs(err, ErrNilHandler)

	var fn HandlerFunc[otherQuery, string]
	_, err = Compile[otherQuery, string](fn)
	s.ErrorIs(err, ErrNilHandler)
}

func (s *PipelineSuite) TestNilValve() {
	var fn ValveFunc[otherQuery, string]
	_, err := Compile[otherQuery, string](s.handler(), s.tracing("A"), fn)
	s.Require().ErrorIs(err, ErrContractViolation)

	var cv *ContractViolationError
	s.Require().ErrorAs(err, &cv)
	s.Equal(1, cv.Index)
	s.Equal(KeyOf[otherQuery, string](), cv.Key)
	s.Contains(err.Error(), "valve 1")
}

func (s *PipelineSuite) TestMustCompilePanics() {
	s.Panics(func() {
		MustCompile[otherQuery, string](nil)
	})
	s.NotPanics(func() {
		MustCompile[otherQuery, string](s.handler())
	})
}
