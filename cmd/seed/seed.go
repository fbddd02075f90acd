package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/aetherblog/ai-service/internal/cli"
	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/internal/store/sqlite"
)

// Seeds the catalog with the stock providers, a starter model set and the
// task types the blog platform dispatches.

var providers = []model.Provider{
	{Code: "openai", Name: "OpenAI", APIType: model.APITypeOpenAICompat, IsEnabled: true, Priority: 10},
	{Code: "anthropic", Name: "Anthropic", APIType: model.APITypeAnthropic, IsEnabled: true, Priority: 20},
	{Code: "azure", Name: "Azure OpenAI", APIType: model.APITypeAzure, IsEnabled: false, Priority: 30},
}

var models = map[string][]model.Model{
	"openai": {
		{ModelID: "gpt-4o", Name: sql.NullString{String: "GPT-4o", Valid: true}, ModelType: model.ModelTypeChat,
			InputCost: sql.NullFloat64{Float64: 0.0025, Valid: true}, OutputCost: sql.NullFloat64{Float64: 0.01, Valid: true}, IsEnabled: true},
		{ModelID: "gpt-4o-mini", Name: sql.NullString{String: "GPT-4o mini", Valid: true}, ModelType: model.ModelTypeChat,
			InputCost: sql.NullFloat64{Float64: 0.00015, Valid: true}, OutputCost: sql.NullFloat64{Float64: 0.0006, Valid: true}, IsEnabled: true},
		{ModelID: "text-embedding-3-small", Name: sql.NullString{String: "Embedding v3 small", Valid: true}, ModelType: model.ModelTypeEmbedding,
			InputCost: sql.NullFloat64{Float64: 0.00002, Valid: true}, IsEnabled: true},
	},
	"anthropic": {
		{ModelID: "claude-sonnet-4-5", Name: sql.NullString{String: "Claude Sonnet 4.5", Valid: true}, ModelType: model.ModelTypeChat,
			InputCost: sql.NullFloat64{Float64: 0.003, Valid: true}, OutputCost: sql.NullFloat64{Float64: 0.015, Valid: true}, IsEnabled: true},
	},
}

type taskSeed struct {
	code   string
	name   string
	prompt string
}

var tasks = []taskSeed{
	{"summary", "Summarize", "Summarize the following blog post in at most {max_length} characters. Return only the summary.\n\n{content}"},
	{"tags", "Suggest tags", "Suggest up to {max_tags} short topical tags for the following blog post. Return one tag per line, no numbering.\n\n{content}"},
	{"titles", "Suggest titles", "Propose {max_titles} alternative titles for the following blog post. Return one title per line, no numbering.\n\n{content}"},
	{"polish", "Polish", "Polish the following blog post for clarity and flow, keeping its meaning and a {tone} tone. Return only the revised text.\n\n{content}"},
	{"outline", "Outline", "Create a blog post outline for the topic \"{topic}\" with up to {depth} heading levels, {style} style. Use markdown headings.\n\n{existing_content}"},
	{"translate", "Translate", "Translate the following blog post from {source_language} to {target_language}. Preserve markdown formatting. Return only the translation.\n\n{content}"},
	{"embedding", "Embedding", ""},
}

func main() {
	dsn := os.Getenv("AI_DB_DSN")
	if dsn == "" {
		dsn = "file:ai.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	repo, err := sqlite.NewSQLiteStorage(dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	ctx := context.Background()

	providerIDs := make(map[string]int64)
	for i := range providers {
		p := providers[i]
		if err := repo.Providers().Create(ctx, &p); err != nil {
			existing, getErr := repo.Providers().GetByCode(ctx, p.Code)
			if getErr != nil {
				log.Fatalf("seed provider %s: %v", p.Code, err)
			}
			providerIDs[p.Code] = existing.ID
			fmt.Printf("%s provider %s already present\n", cli.Warn("skipped"), p.Code)
			continue
		}
		providerIDs[p.Code] = p.ID
		fmt.Printf("%s provider %s\n", cli.Ok("created"), p.Code)
	}

	for code, rows := range models {
		for i := range rows {
			rows[i].ProviderID = providerIDs[code]
		}
		inserted, err := repo.Models().BulkInsert(ctx, rows)
		if err != nil {
			log.Fatalf("seed models for %s: %v", code, err)
		}
		fmt.Printf("inserted %d models for %s\n", inserted, code)
	}

	for _, t := range tasks {
		if _, err := repo.TaskTypes().GetByCode(ctx, t.code); err == nil {
			fmt.Printf("%s task type %s already present\n", cli.Warn("skipped"), t.code)
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Fatalf("seed task type %s: %v", t.code, err)
		}

		row := &model.TaskType{Code: t.code, Name: t.name}
		if t.prompt != "" {
			row.PromptTemplate = sql.NullString{String: t.prompt, Valid: true}
		}
		if err := repo.TaskTypes().Create(ctx, row); err != nil {
			log.Fatalf("seed task type %s: %v", t.code, err)
		}
		fmt.Printf("%s task type %s\n", cli.Ok("created"), t.code)
	}

	fmt.Println(cli.Ok("seed complete"))
}
