package piper

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type RegistrySuite struct {
	suite.Suite
	compiles atomic.Int32
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.compiles.Store(0)
}

func (s *RegistrySuite) build(opts ...Option) *Dispatcher {
	opts = append(opts, WithOnCompile(func(Key, int, error) {
		s.compiles.Add(1)
	}))
	b := New(opts...)
	HandleFunc(b, echo)
	HandleFunc(b, func(ctx context.Context, q testQuery) (testResponse, error) {
		return testResponse{Value: q.Value}, nil
	})
	HandleFunc(b, func(ctx context.Context, q *ptrQuery) (string, error) {
		return q.Text, nil
	})
	d, err := b.Build()
	s.Require().NoError(err)
	return d
}

func (s *RegistrySuite) TestKeysInRegistrationOrder() {
	reg := s.build().Registry()

	s.Equal(3, reg.Len())
	s.Equal([]Key{
		KeyOf[otherQuery, string](),
		KeyOf[testQuery, testResponse](),
		KeyOf[*ptrQuery, string](),
	}, reg.Keys())
	s.True(reg.Has(KeyOf[*ptrQuery, string]()))
	s.False(reg.Has(KeyOf[ptrQuery, string]()))
}

func (s *RegistrySuite) TestKeysReturnsCopy() {
	reg := s.build().Registry()

	keys := reg.Keys()
	keys[0] = Key{}
	s.Equal(KeyOf[otherQuery, string](), reg.Keys()[0])
}

func (s *RegistrySuite) TestEagerCompilesInBuild() {
	d := s.build()

	s.False(d.Registry().Lazy())
	s.Equal(int32(3), s.compiles.Load())

	_, err := Send[string](context.Background(), d, otherQuery{})
	s.Require().NoError(err)
	s.Equal(int32(3), s.compiles.Load())
}

func (s *RegistrySuite) TestLazyCompilesOnFirstUse() {
	d := s.build(WithLazy())
	s.Equal(int32(0), s.compiles.Load())

	_, err := Send[string](context.Background(), d, otherQuery{})
	s.Require().NoError(err)
	s.Equal(int32(1), s.compiles.Load())

	_, err = Send[string](context.Background(), d, otherQuery{})
	s.Require().NoError(err)
	s.Equal(int32(1), s.compiles.Load())
}

func (s *RegistrySuite) TestLazyCompilesOncePerKeyUnderContention() {
	d := s.build(WithLazy())

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = Send[string](context.Background(), d, otherQuery{})
		}()
		go func() {
			defer wg.Done()
			_, _ = Send[testResponse](context.Background(), d, testQuery{})
		}()
	}
	wg.Wait()

	s.Equal(int32(2), s.compiles.Load())
}

func (s *RegistrySuite) TestResolveIsIdempotent() {
	reg := s.build(WithLazy()).Registry()

	p1, err := Resolve[testQuery, testResponse](reg)
	s.Require().NoError(err)
	p2, err := Resolve[testQuery, testResponse](reg)
	s.Require().NoError(err)

	r1, err := p1(context.Background(), testQuery{Value: 7})
	s.Require().NoError(err)
	r2, err := p2(context.Background(), testQuery{Value: 7})
	s.Require().NoError(err)
	s.Equal(r1, r2)
	s.Equal(int32(1), s.compiles.Load())
}

func (s *RegistrySuite) TestResolveUnbound() {
	reg := s.build().Registry()

	p, err := Resolve[ptrQuery, string](reg)
	s.Nil(p)
	s.ErrorIs(err, ErrHandlerNotFound)
}

func (s *RegistrySuite) TestCompileHookSeesValveCount() {
	var got []int
	b := New(WithOnCompile(func(key Key, valves int, err error) {
		got = append(got, valves)
	}))
	HandleFunc(b, echo)
	UseFunc(b, passThrough)
	UseFunc(b, passThrough)
	_, err := b.Build()
	s.Require().NoError(err)
	s.Equal([]int{2}, got)
}

type panickingBinding struct{}

func (panickingBinding) compile(Key, []any) (any, any, error) {
	panic("compile failed")
}

func (s *RegistrySuite) TestPanicDuringCompileIsNotReportedAsNotFound() {
	key := KeyOf[otherQuery, string]()
	reg := &Registry{
		routes: map[Key]*route{key: {key: key, binding: panickingBinding{}}},
		keys:   []Key{key},
		lazy:   true,
		logger: zap.NewNop(),
	}
	d := &Dispatcher{registry: reg}

	s.Panics(func() {
		_, _ = Send[string](context.Background(), d, otherQuery{})
	})

	_, err := Send[string](context.Background(), d, otherQuery{})
	s.ErrorIs(err, ErrCompileIncomplete)
	s.NotErrorIs(err, ErrHandlerNotFound)
	s.EqualError(err, "piper: pipeline compile did not complete: piper.otherQuery -> string")

	p, err := Resolve[otherQuery, string](reg)
	s.Nil(p)
	s.ErrorIs(err, ErrCompileIncomplete)
}

func (s *RegistrySuite) TestPanickingCompileHookKeepsPipeline() {
	b := New(WithLazy(), WithOnCompile(func(Key, int, error) {
		panic("hook failed")
	}))
	HandleFunc(b, echo)
	d, err := b.Build()
	s.Require().NoError(err)

	s.Panics(func() {
		_, _ = Send[string](context.Background(), d, otherQuery{Name: "first"})
	})

	out, err := Send[string](context.Background(), d, otherQuery{Name: "second"})
	s.Require().NoError(err)
	s.Equal("second", out)
}
