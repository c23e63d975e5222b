package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	port         int
	dir          string
	dbFn         string
	aofEnabled   bool
	aofFn        string
	aofFSync     FSyncMode
	compactAfter int
}

type FSyncMode string

const (
	Always   FSyncMode = "always"
	EverySec FSyncMode = "everysec"
	No       FSyncMode = "no"
)

func defaultConfig() *Config {
	return &Config{
		port:         3490,
		dir:          ".",
		dbFn:         "store.txt",
		aofFn:        "appendonly.kv",
		aofFSync:     EverySec,
		compactAfter: 1024,
	}
}

func readConf(fn string) *Config {
	conf := defaultConfig()

	f, err := os.Open(fn)
	if err != nil {
		fmt.Printf("cannot read %s - using default config\n", fn)
		return conf
	}
	defer f.Close()

	s := bufio.NewScanner(f)

	for s.Scan() {
		parseLine(s.Text(), conf)
	}

	if err := s.Err(); err != nil {
		fmt.Println("error scanning config file:", err)
		return conf
	}

	if conf.dir != "" && conf.dir != "." {
		os.MkdirAll(conf.dir, 0755)
	}
	return conf
}

func parseLine(l string, conf *Config) {
	l = strings.TrimSpace(l)
	if l == "" || strings.HasPrefix(l, "#") {
		return
	}

	args := strings.Fields(l)
	cmd := args[0]
	if len(args) < 2 {
		log.Println("missing argument for config directive:", cmd)
		return
	}

	switch cmd {
	case "port":
		port, err := strconv.Atoi(args[1])
		if err != nil || port < 0 || port > 65535 {
			log.Printf("invalid port %q - keeping %d", args[1], conf.port)
			return
		}
		conf.port = port
	case "dir":
		conf.dir = args[1]
	case "dbfilename":
		conf.dbFn = args[1]
	case "appendonly":
		conf.aofEnabled = args[1] == "yes"
	case "appendfilename":
		conf.aofFn = args[1]
	case "appendfsync":
		switch FSyncMode(args[1]) {
		case Always, EverySec, No:
			conf.aofFSync = FSyncMode(args[1])
		default:
			log.Printf("invalid appendfsync %q - keeping %s", args[1], conf.aofFSync)
		}
	case "compactafter":
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			log.Printf("invalid compactafter %q - keeping %d", args[1], conf.compactAfter)
			return
		}
		conf.compactAfter = n
	default:
		log.Println("unknown config directive:", cmd)
	}
}
