package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"omni-trending/internal/features/cards"
)

// go run etc/tools/test_card.go [logo-url]
// in etc/cards/card.png
func main() {
	logoURL := "https://dd.dexscreener.com/ds-data/tokens/solana/DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263.png"
	if len(os.Args) > 1 {
		logoURL = os.Args[1]
	}

	fmt.Println("Rendering test card...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r := cards.NewRenderer(cards.Options{FontPath: os.Getenv("FONT_PATH")})
	png, err := r.Render(ctx, logoURL, "$BONK", "Solana | +20.00%")
	if err != nil {
		fmt.Printf("Error rendering card: %v\n", err)
		os.Exit(1)
	}

	out := filepath.Join("etc", "cards", "card.png")
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		fmt.Printf("Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(out, png, 0644); err != nil {
		fmt.Printf("Error writing card: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Card rendered successfully: %s\n", out)
	fmt.Println("Open the file to see the result!")
}
