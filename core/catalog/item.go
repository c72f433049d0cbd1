// Package catalog is a small product catalog built on the predicate algebra:
// typed items, reusable specifications over them, and an in-memory store
// that reports every query on an event bus.
package catalog

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/asaidimu/go-criteria/core/predicate"
	"github.com/asaidimu/go-criteria/core/schema"
	"github.com/asaidimu/go-criteria/utils"
)

// Item is a catalog entry.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Stock    int     `json:"stock"`
}

// NewItem creates an item with a fresh id.
func NewItem(name string, price float64, category string, stock int) Item {
	return Item{
		ID:       uuid.New().String(),
		Name:     name,
		Price:    price,
		Category: category,
		Stock:    stock,
	}
}

// ItemSchema describes Item documents.
func ItemSchema() *schema.RecordSchema {
	return schema.NewRecordSchema("items",
		schema.FieldDefinition{Name: "id", Type: schema.FieldTypeString, Required: true},
		schema.FieldDefinition{Name: "name", Type: schema.FieldTypeString, Required: true},
		schema.FieldDefinition{Name: "price", Type: schema.FieldTypeNumber, Required: true},
		schema.FieldDefinition{Name: "category", Type: schema.FieldTypeString, Required: true},
		schema.FieldDefinition{Name: "stock", Type: schema.FieldTypeInteger, Required: true},
	)
}

// ItemDocument converts an item to its generic document form.
func ItemDocument(item Item) (schema.Document, error) {
	return utils.StructToMap(item)
}

// ItemFromDocument is the inverse of ItemDocument.
func ItemFromDocument(doc schema.Document) (Item, error) {
	return utils.MapToStruct[Item](doc)
}

// PriceAtMost is satisfied by items costing limit or less.
func PriceAtMost(limit float64) predicate.Predicate[Item] {
	return predicate.Check(fmt.Sprintf("price lte %v", limit), []string{"price"}, func(item Item) (bool, error) {
		return item.Price <= limit, nil
	})
}

// PriceAbove is satisfied by items costing more than floor.
func PriceAbove(floor float64) predicate.Predicate[Item] {
	return predicate.Check(fmt.Sprintf("price gt %v", floor), []string{"price"}, func(item Item) (bool, error) {
		return item.Price > floor, nil
	})
}

// InCategory matches the category exactly.
func InCategory(category string) predicate.Predicate[Item] {
	return predicate.Check(fmt.Sprintf("category eq %q", category), []string{"category"}, func(item Item) (bool, error) {
		return item.Category == category, nil
	})
}

// InStock is satisfied by items with a positive stock count.
func InStock() predicate.Predicate[Item] {
	return predicate.Check("stock gt 0", []string{"stock"}, func(item Item) (bool, error) {
		return item.Stock > 0, nil
	})
}
