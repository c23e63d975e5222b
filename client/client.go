// Package client is a small interactive client for the key-value server's
// line protocol.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Do sends one command line and reads the single response line. PRINT
// responses span multiple lines; use DoPrint for those.
func (c *Client) Do(command string) (string, error) {
	if _, err := fmt.Fprintf(c.conn, "%s\n", command); err != nil {
		return "", err
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// DoPrint sends PRINT and collects the dump, one element per line. The dump
// has no terminator of its own, so lines are read until a short read
// deadline expires.
func (c *Client) DoPrint() ([]string, error) {
	first, err := c.Do("PRINT")
	if err != nil {
		return nil, err
	}

	lines := []string{first}
	if first == "Store is empty." {
		return lines, nil
	}

	for {
		c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		line, err := c.r.ReadString('\n')
		if err != nil {
			break
		}
		lines = append(lines, strings.TrimSuffix(line, "\n"))
	}
	c.conn.SetReadDeadline(time.Time{})
	return lines, nil
}

// Quit tells the server this client is done and closes the connection.
func (c *Client) Quit() (string, error) {
	reply, err := c.Do("quit")
	c.conn.Close()
	return reply, err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Run drives an interactive session: reads commands from in, prints each
// response to out, stops on quit or EOF.
func Run(addr string, in io.Reader, out io.Writer) error {
	c, err := Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintf(out, "Connected to server at %s\n", addr)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter command (or 'quit' to exit): ")
		if !sc.Scan() {
			return sc.Err()
		}
		command := strings.TrimSpace(sc.Text())
		if command == "" {
			continue
		}

		if command == "quit" {
			reply, err := c.Quit()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, reply)
			return nil
		}

		var lines []string
		if command == "PRINT" {
			lines, err = c.DoPrint()
		} else {
			var reply string
			reply, err = c.Do(command)
			lines = []string{reply}
		}
		if err != nil {
			fmt.Fprintln(out, "Server disconnected.")
			return err
		}
		for _, l := range lines {
			fmt.Fprintf(out, "Response: %s\n", l)
		}
	}
}
