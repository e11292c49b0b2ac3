package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/unkn0wn-root/revcache/codec"
	"github.com/unkn0wn-root/revcache/tasks"
)

var stateCodec codec.Codec[tasks.State] = codec.YAML[tasks.State]{}

// readState reports found=false when the file does not exist yet.
func readState(path string) (st tasks.State, found bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return tasks.State{}, false, nil
	}
	if err != nil {
		return tasks.State{}, false, err
	}
	st, err = stateCodec.Decode(b)
	if err != nil {
		return tasks.State{}, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return st, true, nil
}

// writeState replaces the file atomically.
func writeState(path string, st tasks.State) error {
	b, err := stateCodec.Encode(st)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".revtasks-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
