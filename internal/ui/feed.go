package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CerberusV1/proc-monitor/pkg/procmon"
)

// Publisher delivers published snapshots to subscribers.
type Publisher interface {
	Subscribe(fn func(procmon.Snapshot)) (cancel func())
}

// Forward sends every snapshot published by src to send as a SnapshotMsg
// until ctx is done. Subscribers must not block the publisher, so only the
// newest pending snapshot is kept while send is busy.
func Forward(ctx context.Context, src Publisher, send func(tea.Msg)) error {
	pending := make(chan procmon.Snapshot, 1)
	cancel := src.Subscribe(func(s procmon.Snapshot) {
		for {
			select {
			case pending <- s:
				return
			default:
			}
			select {
			case <-pending:
			default:
			}
		}
	})
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-pending:
			send(SnapshotMsg(s))
		}
	}
}

// NewProgram returns a full-screen program showing the table for ctrl. The
// program is killed when ctx is done.
func NewProgram(ctx context.Context, ctrl Controller, title string, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	return tea.NewProgram(NewModel(ctrl, title), opts...)
}
