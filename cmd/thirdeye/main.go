// Command thirdeye is a thin CLI driver over the analysis pipeline: it
// creates an upload group from local PDF files, runs every document
// through the orchestrator, and prints the resulting statuses and
// metrics. Upload handling, auth, and billing live elsewhere; this is an
// os.Args dispatch over env-var configuration, not a server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/castlemilk/thirdeye/backend/internal/agents"
	"github.com/castlemilk/thirdeye/backend/internal/config"
	"github.com/castlemilk/thirdeye/backend/internal/extraction"
	"github.com/castlemilk/thirdeye/backend/internal/modelclient"
	"github.com/castlemilk/thirdeye/backend/internal/orchestrator"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()
	ctx := context.Background()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[Orchestrator] failed to initialise store: %v", err)
	}

	model := buildModelClient(cfg)
	orch := orchestrator.New(
		st,
		agents.NewLayoutAgent(),
		agents.NewTamperingAgent(cfg, model),
		extraction.NewEngine(model),
		agents.NewFraudAgent(model),
		agents.NewInsightsAgent(model),
		os.ReadFile,
	)

	switch os.Args[1] {
	case "analyze":
		if len(os.Args) < 3 {
			log.Fatal("usage: thirdeye analyze <path> [path...]")
		}
		if err := runAnalyze(ctx, st, orch, os.Args[2:]); err != nil {
			log.Fatalf("[Orchestrator] analyze failed: %v", err)
		}
	case "group-status":
		if len(os.Args) != 3 {
			log.Fatal("usage: thirdeye group-status <group-id>")
		}
		if err := runGroupStatus(ctx, st, os.Args[2]); err != nil {
			log.Fatalf("[Orchestrator] group-status failed: %v", err)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: thirdeye <analyze|group-status> [args...]")
	fmt.Fprintln(os.Stderr, "  thirdeye analyze <path> [path...]   create an upload group from one or more PDFs and run the full pipeline")
	fmt.Fprintln(os.Stderr, "  thirdeye group-status <group-id>    print document statuses, risk levels, and aggregated metrics for a group")
}

// runAnalyze creates an UploadGroup and a Document per path, then drives
// each document through the orchestrator in turn. Once the last document
// completes, the group's aggregated metrics are saved automatically; the
// group-level agents also run when the group holds more than one document.
func runAnalyze(ctx context.Context, st store.Store, orch *orchestrator.Orchestrator, paths []string) error {
	group := &store.UploadGroup{CreatedAt: time.Now()}
	if err := st.CreateUploadGroup(ctx, group); err != nil {
		return fmt.Errorf("create upload group: %w", err)
	}
	log.Printf("[Orchestrator] created group %s for %d document(s)", group.ID, len(paths))

	var documentIDs []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		doc := &store.Document{
			GroupID:      group.ID,
			Path:         path,
			OriginalName: filepath.Base(path),
			SizeBytes:    info.Size(),
			Status:       store.DocumentUploaded,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := st.CreateDocument(ctx, doc); err != nil {
			return fmt.Errorf("create document for %s: %w", path, err)
		}
		documentIDs = append(documentIDs, doc.ID)
	}

	for _, id := range documentIDs {
		if err := orch.ProcessDocument(ctx, id); err != nil {
			log.Printf("[Orchestrator] document %s failed: %v", id, err)
		}
	}

	return runGroupStatus(ctx, st, group.ID)
}

func runGroupStatus(ctx context.Context, st store.Store, groupID string) error {
	docs, err := st.ListDocumentsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	fmt.Printf("Group %s: %d document(s)\n", groupID, len(docs))
	for _, d := range docs {
		fmt.Printf("  %-36s %-12s %s\n", d.ID, d.Status, d.OriginalName)
		for _, at := range []store.AgentType{store.AgentLayout, store.AgentExtraction, store.AgentTampering, store.AgentFraud, store.AgentInsights} {
			r, err := st.GetAgentResult(ctx, d.ID, at)
			if err != nil {
				continue
			}
			fmt.Printf("      %-12s %-10s risk=%-8s %s\n", at, r.Status, r.RiskLevel, r.Summary)
		}
	}

	if agg, err := st.GetAggregatedMetrics(ctx, groupID); err == nil {
		fmt.Printf("  aggregated: credits=%.2f debits=%.2f fees=%.2f\n",
			agg.TotalAmountOfCredits, agg.TotalAmountOfDebits, agg.TotalFeesCharged)
	}
	for _, at := range []store.AgentType{store.AgentTampering, store.AgentFraud, store.AgentInsights} {
		r, err := st.GetGroupAgentResult(ctx, groupID, at)
		if err != nil {
			continue
		}
		fmt.Printf("  group %-12s %-10s risk=%-8s %s\n", at, r.Status, r.RiskLevel, r.Summary)
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.UseMemoryStore {
		log.Printf("[Orchestrator] using in-memory store")
		return store.NewMemoryStore(), nil
	}
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = cfg.DatabaseURL
	}
	if projectID == "" {
		return nil, fmt.Errorf("USE_MEMORY_STORE is false but no GOOGLE_CLOUD_PROJECT/DATABASE_URL is set")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	log.Printf("[Orchestrator] using firestore store (project %s)", projectID)
	return store.NewFirestoreStore(client), nil
}

func buildModelClient(cfg config.Config) *modelclient.Client {
	if cfg.ModelEndpoint == "" || cfg.ModelAPIKey == "" {
		log.Printf("[Orchestrator] no model service configured; Tier C and vision checks will decline")
		return modelclient.New("", "", "")
	}
	return modelclient.NewWithDeployments(cfg.ModelEndpoint, cfg.ModelAPIKey, cfg.ModelDeployment, cfg.VisionDeployment).
		WithAPIVersion(cfg.ModelAPIVersion)
}
