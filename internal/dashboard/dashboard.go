// Package dashboard turns the message log into display-ready snapshots.
//
// A Snapshot is always produced: load failures are reported through the
// Error field next to the statistics of an empty dataset, so display layers
// never have to handle a failed refresh themselves.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/stellarlinkco/wamonitor/internal/message"
	"github.com/stellarlinkco/wamonitor/internal/stats"
)

const (
	LoadErrorFormat = "Erro ao carregar mensagens: %v"
	EmptyWarning    = "Nenhuma mensagem capturada ainda. Conecte o cliente WhatsApp para começar."
	EmptyFeed       = "Aguardando mensagens..."
)

// Source is the read side of the message log.
type Source interface {
	Load(ctx context.Context) (*message.Dataset, error)
	Invalidate()
	Path() string
}

type Snapshot struct {
	Source      string        `json:"source"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Error       string        `json:"error,omitempty"`
	Warning     string        `json:"warning,omitempty"`
	Summary     stats.Summary `json:"summary"`
}

// Empty reports whether the snapshot has no messages to show.
func (s Snapshot) Empty() bool {
	return s.Summary.Total == 0
}

type Service struct {
	src  Source
	opts stats.Options
	now  func() time.Time
}

func NewService(src Source, opts stats.Options) *Service {
	return &Service{src: src, opts: opts, now: time.Now}
}

// Snapshot loads the log (through the cache) and aggregates it.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		Source:      s.src.Path(),
		GeneratedAt: s.now(),
	}

	ds, err := s.src.Load(ctx)
	if err != nil {
		log.Printf("[dashboard] %v", err)
		snap.Error = fmt.Sprintf(LoadErrorFormat, err)
		ds = message.Empty()
	}
	if ds.IsEmpty() {
		snap.Warning = EmptyWarning
	}
	snap.Summary = stats.Summarize(ds, s.opts)
	return snap
}

// Refresh drops the cached dataset before building a snapshot.
func (s *Service) Refresh(ctx context.Context) Snapshot {
	s.src.Invalidate()
	return s.Snapshot(ctx)
}
