// Command trystero-tracker runs a standalone WebTorrent-style signalling
// tracker, serving the faketracker swarm-broadcast protocol over plain HTTP,
// or over TLS with automatic Let's Encrypt certificates when -https is set.
package main

import (
	"crypto/tls"
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/acme/autocert"

	"github.com/expenses/trystero/internal/faketracker"
)

var stats = struct {
	connections *expvar.Int
	badproto    *expvar.Int
}{
	connections: expvar.NewInt("connections"),
	badproto:    expvar.NewInt("badproto"),
}

func main() {
	set := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	set.Usage = func() {
		fmt.Fprintf(set.Output(), "run the trystero signalling tracker\n\n")
		fmt.Fprintf(set.Output(), "usage: %s\n\n", os.Args[0])
		fmt.Fprintf(set.Output(), "flags:\n")
		set.PrintDefaults()
	}
	httpaddr := set.String("http", ":http", "http listen address")
	httpsaddr := set.String("https", "", "https listen address (empty disables TLS)")
	whitelist := set.String("hosts", "", "comma separated list of hosts for which to request let's encrypt certs")
	secretpath := set.String("secrets", os.Getenv("HOME")+"/keys", "path to put let's encrypt cache")
	interval := set.Int("interval", 33, "announce interval hint, in seconds, to send clients")
	set.Parse(os.Args[1:])

	tracker := faketracker.New()
	tracker.AnnounceInterval = *interval

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/announce", gziphandler.GzipHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.ToLower(r.Header.Get("Upgrade")) != "websocket" {
			http.Error(w, "this endpoint only speaks websocket", http.StatusUpgradeRequired)
			return
		}
		stats.connections.Add(1)
		tracker.ServeHTTP(w, r)
	})))

	if *httpsaddr == "" {
		srv := &http.Server{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Minute,
			IdleTimeout:  20 * time.Second,
			Addr:         *httpaddr,
			Handler:      mux,
		}
		log.Fatal(srv.ListenAndServe())
	}

	m := &autocert.Manager{
		Cache:      autocert.DirCache(*secretpath),
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(strings.Split(*whitelist, ",")...),
	}
	ssrv := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Minute,
		IdleTimeout:  20 * time.Second,
		Addr:         *httpsaddr,
		Handler:      mux,
		TLSConfig:    &tls.Config{GetCertificate: m.GetCertificate},
	}
	srv := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Minute,
		IdleTimeout:  20 * time.Second,
		Addr:         *httpaddr,
		Handler:      m.HTTPHandler(mux),
	}

	go func() { log.Fatal(ssrv.ListenAndServeTLS("", "")) }()
	log.Fatal(srv.ListenAndServe())
}
