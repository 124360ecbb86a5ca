// Package outbox "delivers" messages by writing them as .eml files, for
// review before a real send or for handing to another mail system.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/delivery/mime"
	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// Ensure Outbox implements the interface.
var _ driven.Sender = (*Outbox)(nil)

// maxCollisions bounds the numeric suffixes tried for one file name.
const maxCollisions = 10000

// Outbox writes one file per message into a directory.
type Outbox struct {
	dir string
}

// New creates an outbox, making the directory if needed.
func New(dir string) (*Outbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: outbox directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create outbox: %w", err)
	}
	return &Outbox{dir: dir}, nil
}

// Name identifies the transport.
func (o *Outbox) Name() string { return "outbox" }

// Dir returns the outbox directory.
func (o *Outbox) Dir() string { return o.dir }

// Send writes the message and returns its Message-ID. Existing files are
// never overwritten.
func (o *Outbox) Send(ctx context.Context, msg domain.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := mime.NewMessageID("outbox.lettermerge.local")
	raw, err := mime.Build(msg, id)
	if err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}

	base := fileBase(msg)
	for i := 1; i <= maxCollisions; i++ {
		name := base + ".eml"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.eml", base, i)
		}
		f, err := os.OpenFile(filepath.Join(o.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := f.Write(raw); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", name, err)
		}
		return id, nil
	}
	return "", fmt.Errorf("%w: too many messages named %s", domain.ErrAlreadyExists, base)
}

// List returns the .eml files in the outbox, sorted by name.
func (o *Outbox) List() ([]string, error) {
	entries, err := os.ReadDir(o.dir)
	if err != nil {
		return nil, fmt.Errorf("read outbox: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".eml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// fileBase names a message after its attachment and recipient.
func fileBase(msg domain.Message) string {
	stem := strings.TrimSuffix(msg.Attachment.Filename, filepath.Ext(msg.Attachment.Filename))
	if stem == "" {
		stem = "message"
	}
	return sanitize(stem + "_" + msg.To)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '@':
			return r
		}
		return '_'
	}, s)
}
