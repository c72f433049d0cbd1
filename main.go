package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/asaidimu/go-criteria/core/catalog"
	"github.com/asaidimu/go-criteria/core/predicate"
	"github.com/asaidimu/go-criteria/core/query"
	"github.com/asaidimu/go-criteria/core/schema"
	"github.com/asaidimu/go-criteria/sqlite"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// --- Catalog: typed items and composed specifications ---
	store, err := catalog.NewStore[catalog.Item]("products", logger)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	store.Subscribe(catalog.QuerySuccess, "demo", func(_ context.Context, ev catalog.QueryEvent) error {
		fmt.Printf("  [event] %s %s matched %d of %d\n", ev.Type, ev.Predicate, *ev.Matched, ev.Scanned)
		return nil
	})

	items := []catalog.Item{
		catalog.NewItem("Laptop", 1500, "Electronics", 5),
		catalog.NewItem("Phone", 800, "Electronics", 0),
		catalog.NewItem("Shirt", 100, "Fashion", 20),
	}
	store.Add(items...)

	available := predicate.Of(catalog.InCategory("Electronics")).And(catalog.InStock())
	runQuery(ctx, store, "Electronics in stock", available)

	affordable := predicate.Of(catalog.PriceAtMost(1000)).Or(catalog.InStock())
	runQuery(ctx, store, "Affordable or in stock", affordable)

	notElectronics := predicate.Of(catalog.InCategory("Electronics")).Not()
	runQuery(ctx, store, "Not electronics", notElectronics)

	// --- Documents: the same questions asked through the query DSL ---
	docs := make([]schema.Document, 0, len(items))
	for _, item := range items {
		doc, err := catalog.ItemDocument(item)
		if err != nil {
			log.Fatalf("Failed to convert item: %v", err)
		}
		docs = append(docs, doc)
	}

	processor := query.NewDataProcessor(logger)
	dsl := query.NewQueryBuilder().
		WhereGroup(query.LogicalOperatorOr).
		Where("price").Lte(1000).
		Where("stock").Gt(0).
		End().
		OrderByDesc("price").
		Build()
	result, err := processor.Query(docs, &dsl)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	fmt.Printf("\nDSL query returned %d of %d documents:\n", result.Count, result.Total)
	for _, doc := range result.Data {
		fmt.Printf("  %s %v\n", doc["name"], doc["price"])
	}

	// A field no record carries is an error, not a silent false.
	discount := query.MustParse("discount > 0")
	if _, err := processor.Query(docs, &query.QueryDSL{Filters: discount}); err != nil {
		fmt.Printf("\nExpected error: %v\n", err)
	}

	// --- SQLite: the parsed expression pushed down as a WHERE clause ---
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	table, err := sqlite.NewStore(db, "items", catalog.ItemSchema(), logger)
	if err != nil {
		log.Fatalf("Failed to create sqlite store: %v", err)
	}
	if err := table.CreateTable(ctx); err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}
	if err := table.Insert(ctx, docs...); err != nil {
		log.Fatalf("Failed to insert documents: %v", err)
	}

	expr := `category == "Electronics" and (stock > 0 or not price <= 1000)`
	f, err := query.Parse(expr)
	if err != nil {
		log.Fatalf("Failed to parse expression: %v", err)
	}
	statement, args, err := table.Generator().GenerateSelectSQL(&query.QueryDSL{Filters: f})
	if err != nil {
		log.Fatalf("Failed to generate SQL: %v", err)
	}
	fmt.Printf("\n%s\n  %s\n  args %v\n", expr, statement, args)

	rows, err := table.Select(ctx, f)
	if err != nil {
		log.Fatalf("Select failed: %v", err)
	}
	for _, row := range rows {
		fmt.Printf("  %s %v %v\n", row["name"], row["price"], row["stock"])
	}
}

func runQuery(ctx context.Context, store *catalog.Store[catalog.Item], title string, spec predicate.Spec[catalog.Item]) {
	p, err := spec.Build()
	if err != nil {
		log.Fatalf("Invalid specification %q: %v", title, err)
	}
	fmt.Printf("\n%s: %s\n", title, predicate.Describe(p))
	matched, err := store.Query(ctx, p)
	if err != nil {
		log.Fatalf("Query %q failed: %v", title, err)
	}
	for _, item := range matched {
		fmt.Printf("  %-8s %7.2f %-12s %d\n", item.Name, item.Price, item.Category, item.Stock)
	}
}
