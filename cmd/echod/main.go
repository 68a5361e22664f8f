// Command echod is a TCP echo/"exit" server exercising the reactor core's
// Server/Connection machinery end to end (spec.md §8 scenarios S1/S2):
// every message is echoed back verbatim, except the literal line "exit\n",
// which gets a "bye\n" reply followed by a half-close of the connection.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lutianen/lux/internal/buffer"
	"github.com/lutianen/lux/internal/iniconf"
	"github.com/lutianen/lux/internal/luxlog"
	"github.com/lutianen/lux/internal/reactor"
)

func main() {
	iniPath := flag.String("ini", "", "path to a Lux INI config file (optional; defaults are used otherwise)")
	flag.Parse()

	cfg := iniconf.Default()
	if *iniPath != "" {
		loaded, err := iniconf.Load(*iniPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "echod: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	af, err := luxlog.NewAppendFile(fmt.Sprintf("%s/%s", cfg.Log.Dir, cfg.Log.BaseName), cfg.Log.RollSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "echod: open log: %v\n", err)
		os.Exit(1)
	}
	async := luxlog.NewAsyncLogger(af)
	async.Start()
	facade := luxlog.NewFacade(async, luxlog.LevelInfo, func() { os.Exit(1) })
	logger := luxlog.NewReactorLogger(facade)

	addr, err := reactor.ResolveTCPAddr(cfg.Server.ListenAddr)
	if err != nil {
		facade.Fatal("resolve listen address failed", "error", err)
	}

	loop, err := reactor.NewLoop(logger)
	if err != nil {
		facade.Fatal("new loop failed", "error", err)
	}

	server, err := reactor.NewServer(loop, cfg.Server.Name, addr, cfg.Server.ReusePort, logger)
	if err != nil {
		facade.Fatal("new server failed", "error", err)
	}
	server.ConnectionCallback = onConnection
	server.MessageCallback = onMessage

	loop.RunInLoop(func() {
		if err := server.Start(cfg.Server.NumThreads); err != nil {
			facade.Fatal("server start failed", "error", err)
		}
		facade.Info("echod listening", "addr", cfg.Server.ListenAddr)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		facade.Info("echod shutting down")
		server.Stop()
		loop.Quit()
	}()

	loop.Loop()
	_ = loop.Close()

	async.Stop()
	_ = af.Close()
}

func onConnection(conn *reactor.Connection) {
	if conn.Connected() {
		fmt.Printf("echod: connection up %s\n", conn.Name())
	} else {
		fmt.Printf("echod: connection down %s\n", conn.Name())
	}
}

// onMessage implements spec.md §8's S1/S2 scenarios: echo every line back,
// except "exit\n", which replies "bye\n" and half-closes the write side so
// the client observes EOF after reading the farewell (§4.5 Shutdown).
func onMessage(conn *reactor.Connection, input *buffer.Buffer, receiveTime time.Time) {
	for {
		data := input.Peek()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return
		}
		line := input.RetrieveBytes(idx + 1)

		if bytes.Equal(line, []byte("exit\n")) {
			conn.Send([]byte("bye\n"))
			conn.Shutdown()
			continue
		}
		conn.Send(line)
	}
}
