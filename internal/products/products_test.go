// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package products

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"mailsmith/internal/blocks"
)

// tierFragment returns a fragment with placeholders for n products.
func tierFragment(n int, variant string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "<mj-section css-class=\"%s\">", variant)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "<mj-column><mj-image src=\"{{P%[1]d_IMAGE_URL}}\" /><mj-text>{{P%[1]d_TITLE}} {{P%[1]d_PRICE}}</mj-text><mj-button href=\"{{P%[1]d_BUTTON_URL}}\">{{P%[1]d_BUTTON_TEXT}}</mj-button></mj-column>", i)
	}
	b.WriteString("</mj-section>")
	return []byte(b.String())
}

func testRenderer() *Renderer {
	lib := fstest.MapFS{
		"Promotion/skeleton/product-sections/2/a.txt": {Data: tierFragment(2, "two-a")},
		"Promotion/skeleton/product-sections/3/a.txt": {Data: tierFragment(3, "three-a")},
		"Promotion/skeleton/product-sections/4/a.txt": {Data: tierFragment(4, "four-a")},
		"Promotion/skeleton/product-sections/4/b.txt": {Data: tierFragment(4, "four-b")},
	}
	return NewRenderer(blocks.NewRepository(blocks.NewFSSource(lib)))
}

func makeProducts(n int) []Product {
	out := make([]Product, n)
	for i := range out {
		out[i] = Product{
			Title:     fmt.Sprintf("Item %d", i+1),
			Price:     "$10",
			ImageURL:  fmt.Sprintf("https://cdn.example.com/%d.png", i+1),
			ButtonURL: "https://shop.example.com",
		}
	}
	return out
}

func TestRenderPicksLargestTierNotAboveDesired(t *testing.T) {
	r := testRenderer()
	out, err := r.Render(context.Background(), "promotion", "skeleton", makeProducts(5), "seed", 5)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "four-") {
		t.Fatalf("expected tier 4 fragment, got %q", out)
	}
	for i := 1; i <= 4; i++ {
		if !strings.Contains(out, fmt.Sprintf("Item %d", i)) {
			t.Errorf("product %d not filled", i)
		}
	}
	if strings.Contains(out, "Item 5") {
		t.Error("product 5 should not be rendered")
	}
	if strings.Contains(out, "{{") {
		t.Errorf("unfilled placeholders remain: %q", out)
	}
}

func TestRenderDesiredBelowSmallestTier(t *testing.T) {
	r := testRenderer()
	out, err := r.Render(context.Background(), "promotion", "skeleton", makeProducts(1), "seed", 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "two-a") {
		t.Fatalf("expected smallest tier, got %q", out)
	}
	if strings.Contains(out, "{{P2_") {
		t.Errorf("leftover placeholders not stripped: %q", out)
	}
	if n := strings.Count(out, "<mj-column>"); n != 1 {
		t.Errorf("columns = %d, want 1 (no empty card): %q", n, out)
	}
	if strings.Contains(out, `src=""`) || strings.Contains(out, `href=""`) {
		t.Errorf("empty product card rendered: %q", out)
	}
}

func TestFillDropsUnfilledColumns(t *testing.T) {
	two := []Product{{Title: "Mug"}, {Title: "Tee"}}
	tests := []struct {
		name     string
		fragment string
		products []Product
		count    int
		want     string
	}{
		{
			name:     "column for missing product removed",
			fragment: `<mj-section><mj-column><mj-text>{{P1_TITLE}}</mj-text></mj-column><mj-column><mj-image src="{{P2_IMAGE_URL}}" /></mj-column></mj-section>`,
			products: two[:1],
			count:    2,
			want:     `<mj-section><mj-column><mj-text>Mug</mj-text></mj-column></mj-section>`,
		},
		{
			name:     "shared column kept",
			fragment: `<mj-column><mj-text>{{P1_TITLE}} {{P2_TITLE}}</mj-text></mj-column>`,
			products: two[:1],
			count:    2,
			want:     `<mj-column><mj-text>Mug </mj-text></mj-column>`,
		},
		{
			name:     "decorative column kept",
			fragment: `<mj-column><mj-divider /></mj-column><mj-column>{{P3_TITLE}}</mj-column>`,
			products: two,
			count:    3,
			want:     `<mj-column><mj-divider /></mj-column>`,
		},
		{
			name:     "full tier untouched",
			fragment: `<mj-column>{{P1_TITLE}}</mj-column><mj-column>{{P2_TITLE}}</mj-column>`,
			products: two,
			count:    2,
			want:     `<mj-column>Mug</mj-column><mj-column>Tee</mj-column>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fill(tt.fragment, tt.products, tt.count); got != tt.want {
				t.Errorf("Fill =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestRenderIsStableForSeed(t *testing.T) {
	r := testRenderer()
	ctx := context.Background()
	first, _ := r.Render(ctx, "promotion", "skeleton", makeProducts(4), "layout-123", 0)
	for i := 0; i < 5; i++ {
		again, _ := r.Render(ctx, "promotion", "skeleton", makeProducts(4), "layout-123", 0)
		if again != first {
			t.Fatal("same seed rendered different variants")
		}
	}
}

func TestRenderDegradesToEmpty(t *testing.T) {
	r := testRenderer()
	ctx := context.Background()

	tests := []struct {
		name      string
		aesthetic string
		products  []Product
	}{
		{"no products", "skeleton", nil},
		{"no tiers for aesthetic", "gradient_glow", makeProducts(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(ctx, "promotion", tt.aesthetic, tt.products, "s", 3)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if out != "" {
				t.Errorf("out = %q, want empty", out)
			}
		})
	}
}

func TestPickTier(t *testing.T) {
	tests := []struct {
		tiers   []int
		desired int
		want    int
		ok      bool
	}{
		{[]int{2, 3, 4}, 5, 4, true},
		{[]int{2, 3, 4}, 3, 3, true},
		{[]int{2, 3, 4}, 1, 2, true},
		{[]int{4, 2}, 3, 2, true},
		{nil, 3, 0, false},
	}
	for _, tt := range tests {
		got, ok := PickTier(tt.tiers, tt.desired)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PickTier(%v, %d) = %d, %v; want %d, %v", tt.tiers, tt.desired, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFillEscapesAndDefaultsButton(t *testing.T) {
	out := Fill("{{P1_TITLE}}|{{P1_BUTTON_TEXT}}", []Product{{Title: "Tom & Jerry <3"}}, 1)
	if out != "Tom &amp; Jerry &lt;3|"+DefaultButtonText {
		t.Errorf("Fill = %q", out)
	}
}

func TestFromPayload(t *testing.T) {
	payload := map[string]any{
		"brandData": map[string]any{
			"products": []any{
				map[string]any{"name": "Mug", "price": 12.5, "imageUrl": "https://x/mug.png", "buttonUrl": "https://x/mug"},
				map[string]any{"title": "Tee", "price": "$20", "image": "https://x/tee.png", "url": "https://x/tee", "buttonText": "Buy"},
				map[string]any{"price": 1.0},
				"garbage",
			},
		},
	}
	got := FromPayload(payload)
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2: %+v", len(got), got)
	}
	if got[0].Title != "Mug" || got[0].Price != "12.50" || got[0].ImageURL != "https://x/mug.png" || got[0].ButtonURL != "https://x/mug" {
		t.Errorf("product 0 = %+v", got[0])
	}
	if got[1].ButtonText != "Buy" || got[1].Price != "$20" {
		t.Errorf("product 1 = %+v", got[1])
	}
}
