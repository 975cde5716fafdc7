// Command reqcheck dispatches one HTTP request built from flags and checks
// the response against optional expectations, printing a colored verdict.
//
//	reqcheck get https://example.com/users --expect-status 200
//	reqcheck post https://example.com/users --json '{"name":"A","job":"B","age":30}' --expect-status 201
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fluenthttp/fluenthttp/internal/logging"
	"github.com/fluenthttp/fluenthttp/internal/request"
)

var (
	flagHeaders      []string
	flagQueries      []string
	flagBody         string
	flagJSON         string
	flagTimeout      time.Duration
	flagRetries      int
	flagExpectStatus int
	flagExpectBody   string
	flagInsecure     bool
	flagOutFile      string
	flagDebug        bool
)

var passMark = color.New(color.FgGreen, color.Bold)
var failMark = color.New(color.FgRed, color.Bold)

var rootCmd = &cobra.Command{
	Use:   "reqcheck <method> <url>",
	Short: "Dispatch one HTTP request and check the response",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return run(args[0], args[1])
	},
}

func run(method, endpoint string) error {
	req, err := request.New(endpoint, method)
	if err != nil {
		return err
	}

	logger := logging.Logger(logging.Nop())
	if flagDebug {
		logger = logging.NewLeveledLogger(os.Stderr, "reqcheck", "debug")
	}
	req.WithLogger(logger)

	for _, h := range flagHeaders {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid --header %q, want key:value", h)
		}
		req.Header(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	for _, q := range flagQueries {
		k, v, ok := strings.Cut(q, "=")
		if !ok {
			return fmt.Errorf("invalid --query %q, want key=value", q)
		}
		req.Query(k, v)
	}
	if flagBody != "" {
		req.Body(flagBody)
	}
	if flagJSON != "" {
		var v interface{}
		if err := json.Unmarshal([]byte(flagJSON), &v); err != nil {
			return fmt.Errorf("invalid --json body: %w", err)
		}
		req.JSON(v)
	}
	if flagTimeout > 0 {
		req.Timeout(flagTimeout)
	}
	if flagRetries > 0 {
		req.Retry(flagRetries, nil)
	}
	if flagInsecure {
		req.InsecureSkipVerify()
	}
	if flagExpectStatus > 0 {
		req.ExpectStatus(flagExpectStatus)
	}
	if flagExpectBody != "" {
		req.ExpectBody(flagExpectBody)
	}

	resp, err := req.Done(context.Background())
	if err != nil {
		failMark.Fprintf(os.Stderr, "FAIL")
		fmt.Fprintf(os.Stderr, " %s %s: %s\n", strings.ToUpper(method), endpoint, err)
		return err
	}

	passMark.Printf("PASS")
	fmt.Printf(" %s %s -> %d (%s)\n", strings.ToUpper(method), endpoint, resp.StatusCode(), resp.ContentType())

	if flagOutFile != "" {
		if err := req.PipeResponseToFile(flagOutFile); err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes to %s\n", len(resp.Body()), flagOutFile)
	} else if len(resp.Body()) > 0 {
		fmt.Println(resp.Text())
	}
	return nil
}

func init() {
	f := rootCmd.Flags()
	f.StringArrayVarP(&flagHeaders, "header", "H", nil, "request header, key:value (repeatable)")
	f.StringArrayVarP(&flagQueries, "query", "q", nil, "query parameter, key=value (repeatable)")
	f.StringVar(&flagBody, "body", "", "raw request body")
	f.StringVar(&flagJSON, "json", "", "JSON request body")
	f.DurationVar(&flagTimeout, "timeout", 0, "overall request timeout")
	f.IntVar(&flagRetries, "retries", 0, "retries on transport errors")
	f.IntVar(&flagExpectStatus, "expect-status", 0, "fail unless the status matches")
	f.StringVar(&flagExpectBody, "expect-body", "", "fail unless the body matches exactly")
	f.BoolVarP(&flagInsecure, "insecure", "k", false, "skip TLS certificate verification")
	f.StringVarP(&flagOutFile, "output", "o", "", "write the response body to a file")
	f.BoolVar(&flagDebug, "debug", false, "log dispatch details to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
