/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package fixture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kentakayama/afc-simulator/resources"
)

// Source resolves a fixture by lookup name. It returns ErrNotFound when it
// does not hold the name.
type Source interface {
	Get(ctx context.Context, name string) (*Fixture, error)
}

// Lookup tries every name of key against src and returns the first fixture
// found along with the name it was found under.
func Lookup(ctx context.Context, src Source, key Key) (*Fixture, string, error) {
	for _, name := range key.Names() {
		f, err := src.Get(ctx, name)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, name, err
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// FSSource reads fixture files from a file system.
type FSSource struct {
	fsys fs.FS
}

func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Embedded returns the fixtures bundled with the simulator.
func Embedded() (*FSSource, error) {
	sub, err := fs.Sub(resources.TestVectors, "test_vectors")
	if err != nil {
		return nil, err
	}
	return NewFSSource(sub), nil
}

// Dir returns the fixtures of a directory.
func Dir(path string) (*FSSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("fixture directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixture directory: %s is not a directory", path)
	}
	return NewFSSource(os.DirFS(path)), nil
}

func (s *FSSource) Get(_ context.Context, name string) (*Fixture, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// Chain asks its sources in order.
type Chain []Source

func (c Chain) Get(ctx context.Context, name string) (*Fixture, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		f, err := src.Get(ctx, name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}
