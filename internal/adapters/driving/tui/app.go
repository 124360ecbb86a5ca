package tui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/lettermerge/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/lettermerge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lettermerge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// App runs batches behind a live progress view.
type App struct {
	ports  *Ports
	styles *styles.Styles
	keys   *keymap.KeyMap
}

// New creates the app after validating ports.
func New(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, ErrMissingGenerateService
	}
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	return &App{
		ports:  ports,
		styles: styles.DefaultStyles(),
		keys:   keymap.DefaultKeyMap(),
	}, nil
}

// Generate runs the request while drawing progress to out. A nil in disables
// keyboard input. The result and error are those of the batch itself.
func (a *App) Generate(
	ctx context.Context,
	req domain.GenerateRequest,
	in io.Reader,
	out io.Writer,
) (*domain.BatchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(title(req), cancel, a.styles, a.keys)
	p := tea.NewProgram(model, tea.WithInput(in), tea.WithOutput(out))

	forward := req.Progress
	req.Progress = func(bp domain.BatchProgress) {
		if forward != nil {
			forward(bp)
		}
		p.Send(messages.BatchProgressed{Progress: bp})
	}

	finished := make(chan messages.BatchFinished, 1)
	go func() {
		result, err := a.ports.Generate.Generate(ctx, req)
		msg := messages.BatchFinished{Result: result, Err: err}
		finished <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return nil, fmt.Errorf("progress view: %w", err)
	}
	msg := <-finished
	return msg.Result, msg.Err
}

func title(req domain.GenerateRequest) string {
	if req.TableName == "" {
		return "Generating letters"
	}
	return "Generating letters from " + filepath.Base(req.TableName)
}
