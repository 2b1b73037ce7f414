package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "A metric with a constant '1' value labeled by version and goversion.",
		},
		[]string{"version", "goversion"},
	)
	auditOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_operations",
			Help: "Incremented for each catch-up pass over the service's updates, labeled by success or failure.",
		},
		[]string{"success"},
	)
	auditDur = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Name: "audit_page_duration",
			Help: "Summary of how long it takes to fetch one page of updates from the service.",
		},
	)
	logSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "log_size",
			Help: "The number of updates the auditor has applied so far.",
		},
	)
)

func metrics(addr string) {
	buildInfo.WithLabelValues(Version, GoVersion).Set(1)
	prometheus.MustRegister(buildInfo)
	prometheus.MustRegister(auditOps)
	prometheus.MustRegister(auditDur)
	prometheus.MustRegister(logSize)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/" {
			fmt.Fprintln(rw, "Hi, I'm a kt-auditor metrics and debugging server!")
		} else {
			rw.WriteHeader(404)
			fmt.Fprintln(rw, "404 not found")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	log.Printf("Starting metrics server at: %v", addr)
	log.Fatal(srv.ListenAndServe())
}
