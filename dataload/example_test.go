package dataload_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/loaderkit/go-dataload/dataload"
	"github.com/loaderkit/go-dataload/resource"
)

func ExampleLoader() {
	loader, err := dataload.New("https://app.example.com",
		dataload.WithExternalTimeout(5*time.Second),
		dataload.WithPrefetch("assets/data/catalog.json"))
	if err != nil {
		log.Fatal(err)
	}
	defer loader.Close()

	ctx := context.Background()

	// Structured data is decoded fresh per call, so it is safe to modify.
	data, err := loader.GetData(ctx, "assets/data/catalog.json", resource.KindJSON)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(data)

	// Text and binary variants.
	readme, _ := loader.GetText(ctx, "assets/text/about.txt")
	icon, _ := loader.GetBlob(ctx, "assets/img/icon.png")
	fmt.Println(len(readme), len(icon.Data))

	stats := loader.GetCacheStats()
	fmt.Println(stats.Entries, stats.Pending)
}

func ExampleGetJSON() {
	loader, err := dataload.New("https://app.example.com")
	if err != nil {
		log.Fatal(err)
	}
	defer loader.Close()

	type Catalog struct {
		Items []string `json:"items"`
	}
	catalog, err := dataload.GetJSON[Catalog](context.Background(), loader, "assets/data/catalog.json")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(catalog.Items)
}
