// Package assets loads the placeable model and delivers it as an
// explicit asynchronous result consumed on the frame loop.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"doorstep/scene"
)

var ErrEmptyAsset = errors.New("asset file is empty")

// Loader resolves a path to a placeable model template.
type Loader interface {
	Load(ctx context.Context, path string) (*scene.Model, error)
}

// Result is the outcome of one asynchronous load.
type Result struct {
	Model *scene.Model
	Err   error
}

// Fetch runs the load off the frame loop and yields exactly one Result
// on the returned channel.
func Fetch(ctx context.Context, l Loader, path string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		m, err := l.Load(ctx, path)
		ch <- Result{Model: m, Err: err}
	}()
	return ch
}

// FileLoader reads the model from the filesystem. The payload is
// carried opaquely; only presence and non-emptiness are checked.
type FileLoader struct {
	// Mesh overrides the display stand-in; nil means a door-sized box.
	Mesh *scene.Mesh
}

func (l FileLoader) Load(ctx context.Context, path string) (*scene.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("load asset %s: %w", path, ErrEmptyAsset)
	}
	mesh := l.Mesh
	if mesh == nil {
		mesh = scene.BoxMesh(0.9, 2.0, 0.08)
	}
	return &scene.Model{
		Name:    filepath.Base(path),
		Payload: data,
		Mesh:    mesh,
	}, nil
}
