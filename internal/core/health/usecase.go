package health

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Status は依存先の稼働状態です。
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Checker は依存先の疎通確認を行います。
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc は関数を Checker として扱うためのアダプタです。
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// Report は疎通確認の結果です。
type Report struct {
	Status     Status
	Components map[string]Status
	Errors     map[string]string
}

// Ready はすべての依存先が稼働中かを返します。
func (r Report) Ready() bool {
	return r.Status == StatusUp
}

// Prober は readiness を判定するユースケースのインターフェースです。
type Prober interface {
	Probe(ctx context.Context) Report
}

// Service は登録された Checker を順に実行する Prober の実装です。
type Service struct {
	checkers map[string]Checker
	timeout  time.Duration
}

// NewService は Service を生成します。timeout が 0 以下の場合は 2 秒です。
func NewService(timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Service{checkers: make(map[string]Checker), timeout: timeout}
}

// Register は name で依存先を登録します。
func (s *Service) Register(name string, checker Checker) {
	s.checkers[name] = checker
}

// Probe は登録済みの依存先を確認します。一件でも失敗すれば全体は down です。
func (s *Service) Probe(ctx context.Context) Report {
	report := Report{
		Status:     StatusUp,
		Components: make(map[string]Status, len(s.checkers)),
		Errors:     make(map[string]string),
	}

	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.check(ctx, s.checkers[name]); err != nil {
			report.Status = StatusDown
			report.Components[name] = StatusDown
			report.Errors[name] = err.Error()
			continue
		}
		report.Components[name] = StatusUp
	}
	return report
}

func (s *Service) check(ctx context.Context, checker Checker) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return checker.Check(ctx)
}
