package main

import (
	"io"
	"log"
	"os"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/resp"
)

// Aof journals each mutation as a RESP-encoded record instead of rewriting
// the snapshot per mutation. Once compactAfter records accumulate, the
// journal is folded into the snapshot file and truncated. Startup replays
// the journal on top of the loaded snapshot, yielding the same final map
// the full-rewrite mode would.
type Aof struct {
	mu           sync.Mutex
	f            *os.File
	w            *resp.Writer
	snap         *SnapshotFile
	fsync        FSyncMode
	compactAfter int
	records      int
	done         chan struct{}
}

func OpenAof(conf *Config, snap *SnapshotFile) (*Aof, error) {
	fp := path.Join(conf.dir, conf.aofFn)
	f, err := os.OpenFile(fp, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %s", fp)
	}

	a := &Aof{
		f:            f,
		w:            resp.NewWriter(f),
		snap:         snap,
		fsync:        conf.aofFSync,
		compactAfter: conf.compactAfter,
		done:         make(chan struct{}),
	}

	if a.fsync == EverySec {
		go a.syncLoop()
	}
	return a, nil
}

func (a *Aof) syncLoop() {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			a.mu.Lock()
			a.f.Sync()
			a.mu.Unlock()
		case <-a.done:
			return
		}
	}
}

// Replay applies the journal's records to m and primes the record counter,
// so compaction accounts for what the journal already holds. A malformed
// trailing record stops the replay without failing startup.
func (a *Aof) Replay(m map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek journal")
	}

	rd := resp.NewReader(a.f)
	for {
		v, _, err := rd.ReadValue()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Println("stopping journal replay on malformed record:", err)
			break
		}
		if v.Type() != resp.Array {
			log.Println("skipping non-array journal record")
			continue
		}

		arr := v.Array()
		switch {
		case len(arr) == 3 && arr[0].String() == "SET":
			m[arr[1].String()] = arr[2].String()
			a.records++
		case len(arr) == 2 && arr[0].String() == "REMOVE":
			delete(m, arr[1].String())
			a.records++
		default:
			log.Println("skipping unrecognized journal record")
		}
	}
	return nil
}

// Save appends one mutation record. Called under the store lock.
func (a *Aof) Save(op string, args []string, data map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	vals := make([]resp.Value, 0, len(args)+1)
	vals = append(vals, resp.StringValue(op))
	for _, arg := range args {
		vals = append(vals, resp.StringValue(arg))
	}
	if err := a.w.WriteArray(vals); err != nil {
		return errors.Wrap(err, "append journal record")
	}
	if a.fsync == Always {
		if err := a.f.Sync(); err != nil {
			return errors.Wrap(err, "sync journal")
		}
	}

	a.records++
	if a.records >= a.compactAfter {
		// The record above is already durable, so a failed compaction is
		// logged and retried on the next mutation rather than surfaced to
		// the client.
		if err := a.compact(data); err != nil {
			log.Println("journal compaction failed:", err)
		}
	}
	return nil
}

// compact folds the current map into the snapshot file and truncates the
// journal. Runs with a.mu held.
func (a *Aof) compact(data map[string]string) error {
	if err := a.snap.Rewrite(data); err != nil {
		return err
	}
	if err := a.f.Truncate(0); err != nil {
		return errors.Wrap(err, "truncate journal")
	}
	a.records = 0
	log.Println("compacted journal into snapshot")
	return nil
}

func (a *Aof) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	close(a.done)
	a.f.Sync()
	return a.f.Close()
}
