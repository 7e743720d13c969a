package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram"
	"github.com/meikuraledutech/diagram/command"
	"github.com/meikuraledutech/diagram/memory"
	"github.com/meikuraledutech/diagram/postgres"
	"github.com/meikuraledutech/diagram/rule"
	"github.com/meikuraledutech/diagram/rule/hclrules"
)

const rulesHCL = `
ruleset "case-management" {
  cardinality "stage-single-predecessor" {
    role      = "stage"
    edge      = "sequence"
    direction = "incoming"
    max       = 1
  }
  connection "sequence-between-stages" {
    edge = "sequence"
    permit {
      from = "stage"
      to   = "stage"
    }
  }
  acyclic "no-stage-loops" {
    edge = "sequence"
  }
}
`

func main() {
	ctx := context.Background()

	logger := zap.Must(zap.NewDevelopment())
	defer logger.Sync()

	// Postgres when DATABASE_URL is set, memory otherwise.
	var store diagram.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("connect", zap.Error(err))
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		logger.Fatal("schema", zap.Error(err))
	}
	fmt.Println("schema created")

	// 2. Load rules
	sets, err := hclrules.NewLoader(logger).Parse("case-management.hcl", []byte(rulesHCL))
	if err != nil {
		logger.Fatal("rules", zap.Error(err))
	}

	// ── Create a case diagram: intake -> review, approve unconnected ──
	created, err := store.CreateDiagram(ctx, &diagram.Graph{
		ID:      "claim-case",
		RuleSet: "case-management",
		Nodes: []*diagram.Node{
			{ID: "intake", Labels: []string{"stage"}, Data: json.RawMessage(`{"title": "Intake"}`)},
			{ID: "review", Labels: []string{"stage"}, Data: json.RawMessage(`{"title": "Review"}`)},
			{ID: "approve", Labels: []string{"stage"}, Data: json.RawMessage(`{"title": "Approve"}`)},
		},
		Edges: []*diagram.Edge{
			{ID: "intake-review", Labels: []string{"sequence"}, SourceID: "intake", TargetID: "review", Content: &diagram.ViewConnector{}},
			{ID: "review-next", Labels: []string{"sequence"}, SourceID: "review", Content: &diagram.ViewConnector{}},
		},
	})
	if err != nil {
		logger.Fatal("create diagram", zap.Error(err))
	}
	fmt.Println("diagram created")
	printJSON(created)

	idx := diagram.NewIndex(created)
	ec := command.NewExecutionContext(idx, rule.NewManager(logger), sets["case-management"], logger)
	history := command.NewHistory(ec)

	// ── Ask first: review -> intake would close a loop ────────────────
	loop, err := command.NewSetConnectionTargetNode(idx.GetNode("intake"), idx.GetEdge("review-next"))
	if err != nil {
		logger.Fatal("command", zap.Error(err))
	}
	fmt.Println("\nallow review -> intake:")
	printJSON(history.Allow(loop))

	// ── Connect review -> approve at a magnet ─────────────────────────
	edge := idx.GetEdge("review-next")
	connect, err := command.NewSetConnectionTargetNode(idx.GetNode("approve"), edge,
		command.WithMagnet(diagram.NewMagnet(0, 0.5)))
	if err != nil {
		logger.Fatal("command", zap.Error(err))
	}
	res := history.Execute(connect)
	fmt.Println("\nexecute review -> approve:")
	printJSON(res)
	if err := store.UpdateConnection(ctx, created.ID, edge, idx.GetNode("approve")); err != nil {
		logger.Fatal("persist", zap.Error(err))
	}

	stored, err := store.GetDiagram(ctx, created.ID)
	if err != nil {
		logger.Fatal("get diagram", zap.Error(err))
	}
	fmt.Println("\ndiagram retrieved:")
	printJSON(stored)

	// ── Undo ──────────────────────────────────────────────────────────
	_, res, err = history.Undo()
	if err != nil {
		logger.Fatal("undo", zap.Error(err))
	}
	fmt.Println("\nundo:")
	printJSON(res)
	if err := store.UpdateConnection(ctx, created.ID, edge, idx.GetNode("approve")); err != nil {
		logger.Fatal("persist", zap.Error(err))
	}
	fmt.Printf("review-next target after undo: %q\n", edge.TargetID)

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteDiagram(ctx, created.ID); err != nil {
		logger.Fatal("delete", zap.Error(err))
	}
	fmt.Println("\ndiagram deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
