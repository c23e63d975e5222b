package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	conf := readConf("./kv.conf")

	snap := NewSnapshotFile(conf)
	data := snap.Load()

	var saver Saver = snap
	var aof *Aof
	if conf.aofEnabled {
		a, err := OpenAof(conf, snap)
		if err != nil {
			log.Println("cannot open journal, falling back to snapshot rewrites:", err)
		} else {
			if err := a.Replay(data); err != nil {
				log.Println("journal replay failed:", err)
			}
			aof = a
			saver = a
		}
	}

	store := NewStore(data, saver)
	srv := NewServer(conf, store)
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("Server is shutting down gracefully.")
	srv.Close()
	if aof != nil {
		aof.Close()
	}
}
