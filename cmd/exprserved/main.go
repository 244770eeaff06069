/*
Exprserved starts the expression evaluator's HTTP façade and begins
listening for requests.

Usage:

	exprserved [flags]

Once started, it listens for HTTP requests and answers them per
internal/exprserver's REST contract. By default it listens on
localhost:8080; this can be changed with --listen/-l.

If a token secret is not given, one is generated at startup and a warning
is logged (the secret itself is not printed); as a consequence every bearer token issued against it becomes invalid the
moment the process exits. This is fine for local testing but must be
supplied explicitly (flag or environment variable) in production.

The flags are:

	-v, --version
		Give the current version and exit.

	-l, --listen ADDRESS:PORT
		Listen on the given address. Defaults to EXPRSERVED_LISTEN_ADDRESS,
		falling back to localhost:8080.

	-f, --config FILE
		Load slab/parse limits and feature gates from the given TOML file.

	--cache-db PATH
		Back /eval's namespace fallback and the /cache admin routes with a
		SQLite-persisted cache at PATH. If omitted, /eval only ever sees
		the variables a request supplies and /cache always 404s.

	-s, --secret TOKEN_SECRET
		Sign and validate /cache admin bearer tokens with the given secret,
		or EXPRSERVED_TOKEN_SECRET if unset. If neither is given, a random
		secret is generated. Whether the /cache routes require a token at
		all is decided by --token-hash alone: without it they are open to
		any caller.
*/
package main

import (
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/dekarrin/exprlang/internal/config"
	"github.com/dekarrin/exprlang/internal/exprserver"
	"github.com/dekarrin/exprlang/internal/exprstore"
	"github.com/dekarrin/exprlang/internal/version"
)

const (
	EnvListen = "EXPRSERVED_LISTEN_ADDRESS"
	EnvSecret = "EXPRSERVED_TOKEN_SECRET"
)

var (
	flagVersion   = pflag.BoolP("version", "v", false, "Give the current version and exit")
	flagListen    = pflag.StringP("listen", "l", "", "Listen on the given ADDRESS:PORT")
	flagConfig    = pflag.StringP("config", "f", "", "TOML config file with slab/parse limits and feature gates")
	flagCacheDB   = pflag.String("cache-db", "", "SQLite path backing a persistent namespace cache")
	flagSecret    = pflag.StringP("secret", "s", "", "Secret signing /cache admin bearer tokens")
	flagTokenHash = pflag.String("token-hash", "", "bcrypt hash /cache admin requests must present a token against; /cache is open if unset")
	flagTokenOut  = pflag.String("issue-token", "", "Issue a bearer token for the given subject against the resolved secret, print it, and exit")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	listenAddr := os.Getenv(EnvListen)
	if pflag.Lookup("listen").Changed {
		listenAddr = *flagListen
	}
	if listenAddr == "" {
		listenAddr = "localhost:8080"
	}

	cfg := config.Default()
	if *flagConfig != "" {
		loaded, err := config.Load(*flagConfig)
		if err != nil {
			log.Fatalf("FATAL could not load config: %s", err.Error())
		}
		cfg = loaded
	}

	var store *exprstore.Store
	if *flagCacheDB != "" {
		var err error
		store, err = exprstore.Open(*flagCacheDB)
		if err != nil {
			log.Fatalf("FATAL could not open cache db: %s", err.Error())
		}
		defer store.Close()
	}

	secret := resolveSecret()

	if *flagTokenOut != "" {
		tok, err := exprserver.IssueToken(secret, *flagTokenOut, 24*time.Hour)
		if err != nil {
			log.Fatalf("FATAL could not issue token: %s", err.Error())
		}
		fmt.Println(tok)
		return
	}

	srv := exprserver.NewServer(cfg, store)
	srv.AuthSecret = secret
	srv.AuthTokenHash = *flagTokenHash

	log.Printf("INFO  Starting exprserved %s on %s...", version.Current, listenAddr)
	log.Fatal(http.ListenAndServe(listenAddr, srv))
}

// resolveSecret reads the token secret from flags or environment, or
// generates and logs a random one so local testing works without any
// setup.
func resolveSecret() []byte {
	secretStr := os.Getenv(EnvSecret)
	if pflag.Lookup("secret").Changed {
		secretStr = *flagSecret
	}
	if secretStr != "" {
		return []byte(secretStr)
	}

	secret := make([]byte, 64)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("FATAL could not generate token secret: %s", err.Error())
	}
	log.Printf("WARN  Using generated token secret; all tokens issued will become invalid at shutdown")
	return secret
}
