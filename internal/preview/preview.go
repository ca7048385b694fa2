// Package preview is the interactive terminal preview surface.
package preview

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ivlev/framefx/internal/engine"
	"github.com/ivlev/framefx/internal/source"
)

// Run shows the live preview until the user quits or ctx is cancelled.
func Run(ctx context.Context, eng *engine.Engine, src source.Source, opts Options) error {
	if src.PageCount() == 0 {
		return source.ErrEmptySource
	}
	p := tea.NewProgram(New(ctx, eng, src, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
