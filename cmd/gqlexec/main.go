package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ModernAnimal/graphql-core/internal/eventbus"
	"github.com/ModernAnimal/graphql-core/internal/executor"
	"github.com/ModernAnimal/graphql-core/internal/language"
	"github.com/ModernAnimal/graphql-core/internal/otel"
	"github.com/ModernAnimal/graphql-core/internal/schema"
)

const rootUsage = `gqlexec — GraphQL execution engine tools

USAGE:
  gqlexec <command> [flags]

COMMANDS:
  execute          Execute a query against an SDL schema and a JSON root value
  print-schema     Parse & validate SDL and print its canonical form
  help             Show help for any command
`

const executeUsage = `execute FLAGS:
  -schema <file>         SDL schema file (required)
  -query <file>          Query document file (required)
  -operation <name>      Operation name (default: the document's only operation)
  -vars <json>           Variable values as a JSON object
  -data <file>           JSON root value the default resolver reads from
  -incremental           Honor @defer/@stream and print each patch as it arrives
  -pretty                Pretty-print JSON output
  -otel.endpoint <addr>  OTLP collector endpoint
  -otel.service <name>   OpenTelemetry service name (default: gqlexec)
`

const printSchemaUsage = `print-schema FLAGS:
  -schema <file>  SDL schema file (required)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("gqlexec", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "execute":
		return cmdExecute(cmdArgs)
	case "print-schema":
		return cmdPrintSchema(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "execute":
		fmt.Print(executeUsage)
	case "print-schema":
		fmt.Print(printSchemaUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdExecute(args []string) error {
	schemaFile := ""
	queryFile := ""
	operationName := ""
	varsJSON := ""
	dataFile := ""
	incremental := false
	pretty := false
	otelEndpoint := ""
	otelService := "gqlexec"

	fs := flag.NewFlagSet("execute", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "SDL schema file")
	fs.StringVar(&queryFile, "query", queryFile, "Query document file")
	fs.StringVar(&operationName, "operation", operationName, "Operation name")
	fs.StringVar(&varsJSON, "vars", varsJSON, "Variable values as a JSON object")
	fs.StringVar(&dataFile, "data", dataFile, "JSON root value")
	fs.BoolVar(&incremental, "incremental", incremental, "Honor @defer/@stream")
	fs.BoolVar(&pretty, "pretty", pretty, "Pretty-print JSON output")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, executeUsage)
		return err
	}
	if schemaFile == "" || queryFile == "" {
		fmt.Fprint(os.Stderr, executeUsage)
		return fmt.Errorf("-schema and -query are required")
	}

	sch, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}

	querySrc, err := os.ReadFile(queryFile)
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}
	doc, err := language.ParseQuery(string(querySrc))
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}

	var variables map[string]any
	if varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &variables); err != nil {
			return fmt.Errorf("parse -vars: %w", err)
		}
	}

	var rootValue any
	if dataFile != "" {
		raw, err := os.ReadFile(dataFile)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}
		if err := json.Unmarshal(raw, &rootValue); err != nil {
			return fmt.Errorf("parse data: %w", err)
		}
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	exec := executor.NewExecutor(sch)
	ctx := context.Background()

	if !incremental {
		result := exec.ExecuteRequest(ctx, doc, operationName, variables, rootValue)
		return printJSON(result, pretty)
	}

	res := exec.ExecuteIncremental(ctx, doc, operationName, variables, rootValue)
	defer res.Close()
	if err := printJSON(initialEnvelope(res), pretty); err != nil {
		return err
	}
	for {
		patch, ok := res.Next(ctx)
		if !ok {
			return nil
		}
		if err := printJSON(patch, pretty); err != nil {
			return err
		}
	}
}

// initialEnvelope shapes the first incremental payload: the execution
// result plus the hasNext flag telling the consumer whether to keep reading.
func initialEnvelope(res *executor.IncrementalResult) any {
	return struct {
		Data    any                     `json:"data"`
		Errors  []executor.GraphQLError `json:"errors,omitempty"`
		HasNext bool                    `json:"hasNext"`
	}{
		Data:    res.Initial.Data,
		Errors:  res.Initial.Errors,
		HasNext: res.HasNext,
	}
}

func cmdPrintSchema(args []string) error {
	schemaFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "SDL schema file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return fmt.Errorf("-schema is required")
	}
	sch, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	fmt.Print(schema.Render(sch))
	return nil
}

func loadSchema(path string) (*schema.Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	sdoc, err := language.ParseSchema(path, string(src))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	sch, err := schema.BuildFromSDL(sdoc)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

func printJSON(v any, pretty bool) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
