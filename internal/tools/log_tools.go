package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

type searchLogsArgs struct {
	Path  string `json:"path"`
	Query string `json:"query"`
}

type pathArgs struct {
	Path string `json:"path"`
}

type tailLogsArgs struct {
	Path  string `json:"path"`
	Lines int    `json:"lines"`
}

type queryJournalArgs struct {
	Unit  string `json:"unit"`
	Lines int    `json:"lines"`
}

func logTools(backend LogBackend) []Tool {
	return []Tool{
		{
			Name:        "search_logs",
			Description: "Search a log file for lines matching a query string.",
			Schema:      json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"},"query":{"type":"string"}},"required":["query"]}`),
			Kind:        KindLog,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				var args searchLogsArgs
				_ = json.Unmarshal(raw, &args)
				if args.Path == "" {
					args.Path = DefaultLogPath
				}
				entries, err := backend.Search(ctx, args.Path, args.Query)
				if err != nil {
					return Result{ToolName: "search_logs", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(map[string]any{"entries": entries})
				return Result{
					ToolName: "search_logs",
					Success:  true,
					Data:     data,
					Summary:  fmt.Sprintf("%d matching line(s) for %q", len(entries), args.Query),
				}
			},
		},
		{
			Name:        "analyze_errors",
			Description: "Scan a log file and bucket error/warning lines by category.",
			Schema:      json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`),
			Kind:        KindLog,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				var args pathArgs
				_ = json.Unmarshal(raw, &args)
				if args.Path == "" {
					args.Path = DefaultLogPath
				}
				byCategory, err := backend.AnalyzeErrors(ctx, args.Path)
				if err != nil {
					return Result{ToolName: "analyze_errors", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(map[string]any{"by_category": byCategory})
				return Result{
					ToolName: "analyze_errors",
					Success:  true,
					Data:     data,
					Summary:  fmt.Sprintf("%d error, %d warning", byCategory["error"], byCategory["warning"]),
				}
			},
		},
		{
			Name:        "log_stats",
			Description: "Report coarse line counts for a log file.",
			Schema:      json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`),
			Kind:        KindLog,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				var args pathArgs
				_ = json.Unmarshal(raw, &args)
				if args.Path == "" {
					args.Path = DefaultLogPath
				}
				stats, err := backend.Stats(ctx, args.Path)
				if err != nil {
					return Result{ToolName: "log_stats", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(stats)
				return Result{
					ToolName: "log_stats",
					Success:  true,
					Data:     data,
					Summary:  fmt.Sprintf("%d total line(s)", stats["total_lines"]),
				}
			},
		},
		{
			Name:        "tail_logs",
			Description: "Return the last N lines of a log file.",
			Schema:      json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"},"lines":{"type":"integer"}}}`),
			Kind:        KindLog,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				var args tailLogsArgs
				_ = json.Unmarshal(raw, &args)
				if args.Path == "" {
					args.Path = DefaultLogPath
				}
				if args.Lines <= 0 {
					args.Lines = 20
				}
				lines, err := backend.Tail(ctx, args.Path, args.Lines)
				if err != nil {
					return Result{ToolName: "tail_logs", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(map[string]any{"lines": lines})
				return Result{
					ToolName: "tail_logs",
					Success:  true,
					Data:     data,
					Summary:  fmt.Sprintf("last %d line(s) of %s", len(lines), args.Path),
				}
			},
		},
		{
			Name:        "query_journal",
			Description: "Return the last N lines of the systemd journal for a unit.",
			Schema:      json.RawMessage(`{"type":"object","properties":{"unit":{"type":"string"},"lines":{"type":"integer"}},"required":["unit"]}`),
			Kind:        KindLog,
			Execute: func(ctx context.Context, raw json.RawMessage) Result {
				var args queryJournalArgs
				if err := json.Unmarshal(raw, &args); err != nil || args.Unit == "" {
					return Result{ToolName: "query_journal", Success: false, Error: "missing required argument: unit"}
				}
				if args.Lines <= 0 {
					args.Lines = 20
				}
				lines, err := backend.QueryJournal(ctx, args.Unit, args.Lines)
				if err != nil {
					return Result{ToolName: "query_journal", Success: false, Error: err.Error()}
				}
				data, _ := json.Marshal(map[string]any{"lines": lines})
				return Result{
					ToolName: "query_journal",
					Success:  true,
					Data:     data,
					Summary:  fmt.Sprintf("last %d line(s) of journal for %s", len(lines), args.Unit),
				}
			},
		},
	}
}
