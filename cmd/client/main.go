// Command chat-client joins a chat room from the terminal.
//
//	chat-client [--host h] <username> <port>
//
// Every stdin line is sent to the room and every line from the server is
// printed as is.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/hongjun500/linechat/internal/config"
)

const defaultHost = "127.0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, interactive); err != nil {
		fmt.Fprintf(os.Stderr, "chat-client: %v\n", err)
		os.Exit(1)
	}
}

// run connects, sends the username and relays lines both ways until the
// server closes the connection or ctx is done. Closing stdin leaves the
// room. When interactive and no username is given, it is prompted for.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, interactive bool) error {
	fs := flag.NewFlagSet("chat-client", flag.ContinueOnError)
	fs.SetOutput(stdout)
	host := fs.String("host", defaultHost, "Server host")
	timeout := fs.Duration("timeout", 5*time.Second, "Connect timeout")
	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage: chat-client [flags] <username> <port>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	in := bufio.NewScanner(stdin)
	var name, portArg string
	switch {
	case fs.NArg() == 2:
		name, portArg = fs.Arg(0), fs.Arg(1)
	case fs.NArg() == 1 && interactive:
		portArg = fs.Arg(0)
		fmt.Fprint(stdout, "username: ")
		if !in.Scan() {
			return errors.New("no username given")
		}
		name = in.Text()
	default:
		fs.Usage()
		return errors.New("want <username> <port>")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("username must not be empty")
	}
	port, err := config.ParsePort(portArg)
	if err != nil {
		return err
	}

	d := net.Dialer{Timeout: *timeout}
	addr := net.JoinHostPort(*host, fmt.Sprint(port))
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if _, err := fmt.Fprintln(conn, name); err != nil {
		return fmt.Errorf("send username: %w", err)
	}

	received := make(chan error, 1)
	go func() {
		received <- printLines(conn, stdout)
	}()
	go sendLines(in, conn)

	err = <-received
	if ctx.Err() != nil || isClosed(err) {
		return nil
	}
	return err
}

// printLines copies server lines to out until the connection ends.
func printLines(conn net.Conn, out io.Writer) error {
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		if _, err := fmt.Fprintln(out, sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// sendLines relays in to conn, then half-closes so the server ends the
// session once it has read everything.
func sendLines(in *bufio.Scanner, conn net.Conn) {
	for in.Scan() {
		if _, err := fmt.Fprintln(conn, in.Text()); err != nil {
			return
		}
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
		return
	}
	_ = conn.Close()
}

func isClosed(err error) bool {
	return err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, syscall.ECONNRESET)
}
