package main

import (
	"fmt"
	"strings"
)

type Handler func(args []string, s *Store) string

var handlers = map[string]Handler{
	"SET":    set,
	"GET":    get,
	"REMOVE": remove,
	"PRINT":  printAll,
}

// interpret maps one command line to a store operation and renders the
// response. Verbs are case-sensitive. quit never reaches here; the
// connection handler owns it.
func interpret(line string, s *Store) string {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "ERROR: Empty command"
	}

	handler, ok := handlers[tokens[0]]
	if !ok {
		return "Unknown command."
	}
	return handler(tokens[1:], s)
}

func set(args []string, s *Store) string {
	if len(args) < 2 {
		return "ERROR: SET command requires 2 arguments: key and value"
	}

	// values may contain spaces; everything after the key is the value
	key, val := args[0], strings.Join(args[1:], " ")
	if err := s.Set(key, val); err != nil {
		return "ERROR: persistence failure"
	}
	return fmt.Sprintf("Added key '%s' with value '%s'", key, val)
}

func get(args []string, s *Store) string {
	if len(args) != 1 {
		return "ERROR: GET command requires 1 argument: key"
	}

	val, ok := s.Get(args[0])
	if !ok {
		return fmt.Sprintf("Key '%s' not found.", args[0])
	}
	return val
}

func remove(args []string, s *Store) string {
	if len(args) != 1 {
		return "ERROR: REMOVE command requires 1 argument: key"
	}

	removed, err := s.Remove(args[0])
	if err != nil {
		return "ERROR: persistence failure"
	}
	if !removed {
		return fmt.Sprintf("Key '%s' not found.", args[0])
	}
	return fmt.Sprintf("Removed key '%s'.", args[0])
}

func printAll(args []string, s *Store) string {
	if len(args) != 0 {
		return "ERROR: PRINT command takes no arguments"
	}

	pairs := s.Pairs()
	if len(pairs) == 0 {
		return "Store is empty."
	}

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", p.Key, p.Val)
	}
	return b.String()
}
