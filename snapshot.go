package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// SnapshotFile is the full-snapshot backing file: one "<key> <value>" pair
// per line, rewritten in full on every mutation.
type SnapshotFile struct {
	path string
}

func NewSnapshotFile(conf *Config) *SnapshotFile {
	return &SnapshotFile{path: path.Join(conf.dir, conf.dbFn)}
}

// Load reads the backing file into a fresh map. A missing file means an
// empty store. Lines without a value segment are skipped; an unreadable
// file is logged and yields an empty map rather than failing startup.
func (sf *SnapshotFile) Load() map[string]string {
	m := map[string]string{}

	f, err := os.Open(sf.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Println("cannot read store file:", err)
		}
		return m
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 2 {
			continue
		}
		m[fields[0]] = strings.Join(fields[1:], " ")
	}
	if err := s.Err(); err != nil {
		log.Println("error scanning store file:", err)
	}
	return m
}

// Save implements Saver for the default persistence mode: every completed
// mutation rewrites the whole file from the current map.
func (sf *SnapshotFile) Save(op string, args []string, data map[string]string) error {
	return sf.Rewrite(data)
}

// Rewrite serializes data to a temp file in the same directory and renames
// it over the target, so no reader of the file ever sees a half-written
// snapshot.
func (sf *SnapshotFile) Rewrite(data map[string]string) error {
	tmp := sf.path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "open temp store file")
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := bufio.NewWriter(f)
	for _, k := range keys {
		fmt.Fprintf(w, "%s %s\n", k, data[k])
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "write store file")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "sync store file")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "close store file")
	}

	if err := os.Rename(tmp, sf.path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "replace store file")
	}
	return nil
}
