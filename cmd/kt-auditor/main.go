// Command kt-auditor is the third-party auditor process: it polls a KT
// service for new log updates, verifies and applies them to its own copy
// of the prefix and log trees, signs the resulting head, durably commits
// it, and publishes it back to the service.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/ktlog/auditor/client"
	"github.com/ktlog/auditor/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	Version   = "dev"
	GoVersion = runtime.Version()

	configFile = flag.String("config", "", "Location of config file.")
)

func openStore(cfg *Config, macKey []byte) (storage.Adaptor, error) {
	if cfg.DatabaseFile != "" {
		return storage.OpenLocalStore(cfg.DatabaseFile, macKey)
	}

	oc := cfg.ObjectStore
	mc, err := minio.New(oc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(oc.AccessKey, oc.SecretKey, ""),
		Secure: oc.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewObjectStore(mc, oc.Bucket, macKey), nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.LUTC)
	flag.Parse()

	if *configFile == "" {
		log.Fatalf("No config file provided, see --help.")
	}
	cfg, err := ReadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go metrics(cfg.MetricsAddr)
	}

	macKey, err := storage.DeriveMACKey(cfg.signingKey)
	if err != nil {
		log.Fatalf("Failed to derive MAC key: %v", err)
	}
	store, err := openStore(cfg, macKey)
	if err != nil {
		log.Fatalf("Failed to open persistence adaptor: %v", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	auditorClient := client.New(cfg.ServiceAddr, httpClient)

	l, err := newLoop(cfg, store, auditorClient)
	if err != nil {
		log.Fatalf("Failed to initialize audit loop: %v", err)
	}

	ctx := context.Background()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := l.catchUp(ctx); err != nil {
			log.Fatalf("Audit loop failed: %v", err)
		}
		<-ticker.C
	}
}
