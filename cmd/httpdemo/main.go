// Command httpdemo is a thin line-based HTTP stand-in built directly on
// internal/reactor's Server, demonstrating the out-of-scope HTTP
// component original_source/app/http implements (spec.md §1 calls a real
// HTTP demo application out of scope for careful design). It understands
// exactly one request shape, "GET /path HTTP/1.x\r\n...\r\n\r\n", and two
// routes:
//
//   - GET /            -> a static greeting
//   - GET /user/<name>  -> looks <name> up via internal/luxsql (falling back
//     to internal/luxkv if the row isn't found), exercising both external
//     adaptors the way original_source/app/http's Application constructor
//     queried MySQL for its user table.
//
// This is not a general HTTP/1.1 server: no chunked encoding, no keep-alive
// pipelining beyond one request per read, no response headers beyond
// Content-Type and Content-Length.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lutianen/lux/internal/buffer"
	"github.com/lutianen/lux/internal/iniconf"
	"github.com/lutianen/lux/internal/luxkv"
	"github.com/lutianen/lux/internal/luxlog"
	"github.com/lutianen/lux/internal/luxsql"
	"github.com/lutianen/lux/internal/reactor"
)

func main() {
	iniPath := flag.String("ini", "", "path to a Lux INI config file (optional; defaults are used otherwise)")
	flag.Parse()

	cfg := iniconf.Default()
	cfg.Server.ListenAddr = "127.0.0.1:8080"
	cfg.Server.Name = "httpdemo"
	if *iniPath != "" {
		loaded, err := iniconf.Load(*iniPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "httpdemo: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	af, err := luxlog.NewAppendFile(fmt.Sprintf("%s/%s", cfg.Log.Dir, cfg.Log.BaseName), cfg.Log.RollSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "httpdemo: open log: %v\n", err)
		os.Exit(1)
	}
	async := luxlog.NewAsyncLogger(af)
	async.Start()
	facade := luxlog.NewFacade(async, luxlog.LevelInfo, func() { os.Exit(1) })
	logger := luxlog.NewReactorLogger(facade)

	var db *luxsql.DB
	if cfg.MySQL.DSN != "" {
		db, err = luxsql.Open(luxsql.Config{
			DSN:             cfg.MySQL.DSN,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: time.Hour,
			Logger:          logger,
		})
		if err != nil {
			facade.Fatal("mysql open failed", "error", err)
		}
		defer db.Close()
	}

	var kv *luxkv.Conn
	if cfg.Redis.Addr != "" {
		kv = luxkv.Connect(luxkv.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Logger:   logger,
		})
		defer kv.Disconnect()
	}

	app := &application{db: db, kv: kv, logger: facade}

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
	server.MessageCallback = app.onMessage

	loop.RunInLoop(func() {
		if err := server.Start(cfg.Server.NumThreads); err != nil {
			facade.Fatal("server start failed", "error", err)
		}
		facade.Info("httpdemo listening", "addr", cfg.Server.ListenAddr)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		server.Stop()
		loop.Quit()
	}()

	loop.Loop()
	_ = loop.Close()

	async.Stop()
	_ = af.Close()
}

type application struct {
	db     *luxsql.DB
	kv     *luxkv.Conn
	logger *luxlog.Facade
}

// onMessage parses one request line (discarding the rest of the request up
// to the blank-line terminator) and writes a minimal HTTP/1.0 response.
func (app *application) onMessage(conn *reactor.Connection, input *buffer.Buffer, _ time.Time) {
	data := input.Peek()
	end := bytes.Index(data, []byte("\r\n\r\n"))
	if end < 0 {
		return
	}
	request := input.RetrieveBytes(end + 4)

	requestLine, _, _ := bytes.Cut(request, []byte("\r\n"))
	fields := strings.Fields(string(requestLine))
	if len(fields) != 3 || fields[0] != "GET" {
		app.respond(conn, 400, "Bad Request", "only GET is understood by this demo\n")
		return
	}
	path := fields[1]
	app.logger.Debug("httpdemo: request", "path", path, "conn", conn.Name())

	switch {
	case path == "/":
		app.respond(conn, 200, "OK", "lux httpdemo: a thin reactor-backed HTTP stand-in\n")
	case strings.HasPrefix(path, "/user/"):
		app.handleUser(conn, strings.TrimPrefix(path, "/user/"))
	default:
		app.respond(conn, 404, "Not Found", fmt.Sprintf("no such route: %s\n", path))
	}
}

func (app *application) handleUser(conn *reactor.Connection, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if app.db != nil {
		row := app.db.Raw().QueryRowContext(ctx, "SELECT mail FROM user WHERE username = ?", name)
		var mail string
		if err := row.Scan(&mail); err == nil {
			app.respond(conn, 200, "OK", fmt.Sprintf("%s: %s (mysql)\n", name, mail))
			return
		}
	}

	if app.kv != nil {
		if value, ok, err := app.kv.GetKey(ctx, "user:"+name); err == nil && ok {
			app.respond(conn, 200, "OK", fmt.Sprintf("%s: %s (redis)\n", name, value))
			return
		}
	}

	app.respond(conn, 404, "Not Found", fmt.Sprintf("no such user: %s\n", name))
}

func (app *application) respond(conn *reactor.Connection, status int, reason, body string) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.0 %d %s\r\n", status, reason)
	fmt.Fprintf(&buf, "Content-Type: text/plain\r\n")
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(body))
	buf.WriteString(body)
	conn.Send(buf.Bytes())
	conn.Shutdown()
}
