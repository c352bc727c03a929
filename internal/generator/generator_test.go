// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"mailsmith/internal/ai"
	"mailsmith/internal/blocks"
	"mailsmith/internal/layout"
	"mailsmith/internal/mjml"
)

const (
	heroFragment    = `<mj-section><mj-column><mj-image src="https://CUSTOMHEROIMAGE.com/hero.png"></mj-image></mj-column></mj-section>`
	footerFragment  = `<mj-section><mj-column><mj-text>Footer copy</mj-text></mj-column></mj-section>`
	productFragment = `<mj-section css-class="products"><mj-column><mj-text>{{P1_TITLE}}</mj-text><mj-text>{{P2_TITLE}}</mj-text></mj-column></mj-section>`
)

func testRepo() *blocks.Repository {
	lib := fstest.MapFS{
		"Promotion/skeleton/block1/hero.txt":                  {Data: []byte(heroFragment)},
		"Promotion/skeleton/block3/footer.txt":                {Data: []byte(footerFragment)},
		"Promotion/skeleton/product-sections/2/grid.txt":      {Data: []byte(productFragment)},
		"Productgrid/skeleton/block1/hero.txt":                {Data: []byte(heroFragment)},
		"Productgrid/skeleton/block3/footer.txt":              {Data: []byte(footerFragment)},
		"Productgrid/minimal_clean/product-sections/2/a.txt":  {Data: []byte(productFragment)},
		"Newsletter/skeleton/block1/intro.txt":                {Data: []byte(heroFragment)},
		"Newsletter/skeleton/block2/story.txt":                {Data: []byte(`<mj-section><mj-column><mj-text>Story</mj-text></mj-column></mj-section>`)},
		"Newsletter/skeleton/block3/footer.txt":               {Data: []byte(footerFragment)},
		"Welcome/skeleton/block1/greeting.txt":                {Data: []byte(heroFragment)},
	}
	return blocks.NewRepository(blocks.NewFSSource(lib))
}

// echoCompleter returns the document it was sent, optionally transformed.
type echoCompleter struct {
	transform func(doc string) string
	err       error
	calls     []ai.Request
}

func (e *echoCompleter) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	e.calls = append(e.calls, req)
	if e.err != nil {
		return nil, e.err
	}
	doc := req.UserPrompt[strings.Index(req.UserPrompt, "MJML document:\n")+len("MJML document:\n"):]
	if e.transform != nil {
		doc = e.transform(doc)
	}
	return &ai.Response{
		Text:  doc,
		Model: "echo-1",
		Usage: ai.Usage{PromptTokens: 100, CompletionTokens: 80, TotalTokens: 180},
	}, nil
}

func brandPayload() map[string]any {
	return map[string]any{
		"primary_color": "#1d4ed8",
		"website":       "acme.example",
		"products": []any{
			map[string]any{"title": "Mug", "price": 12.5},
			map[string]any{"title": "Tee", "price": "20.00"},
		},
	}
}

func TestGeneratePromotion(t *testing.T) {
	llm := &echoCompleter{}
	g := New(testRepo(), llm, mjml.DefaultOptions)

	res, err := g.Generate(context.Background(), Request{
		EmailType: "promotion",
		Aesthetic: "bold_contrasting",
		Brand:     brandPayload(),
		Seed:      "fixed",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	doc := res.RefinedMJML
	for _, want := range []string{"Mug", "Tee", "<mj-head>", "CUSTOMHEROIMAGE", `href="https://acme.example"`} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, layout.ProductSectionToken) {
		t.Error("product token must not survive injection")
	}
	for _, marker := range res.Layout.Markers() {
		if strings.Count(doc, marker) != 1 {
			t.Errorf("marker %q count = %d, want 1", marker, strings.Count(doc, marker))
		}
	}

	if res.StyleUsed.ID != "bold_contrasting" {
		t.Errorf("StyleUsed.ID = %q", res.StyleUsed.ID)
	}
	if res.Metrics.Model != "echo-1" || res.Metrics.Usage.TotalTokens != 180 {
		t.Errorf("metrics usage = %+v model=%q", res.Metrics.Usage, res.Metrics.Model)
	}
	var steps []string
	for _, s := range res.Metrics.Steps {
		steps = append(steps, s.Name)
	}
	wantSteps := []string{StepLayout, StepProducts, StepLinks, StepRefine, StepTheme, StepFormat}
	if !slices.Equal(steps, wantSteps) {
		t.Errorf("steps = %v, want %v", steps, wantSteps)
	}

	if len(llm.calls) != 1 {
		t.Fatalf("completion calls = %d, want 1", len(llm.calls))
	}
	call := llm.calls[0]
	if call.Temperature == nil || *call.Temperature != 0.3 {
		t.Errorf("refine temperature = %v, want 0.3", call.Temperature)
	}
	if !strings.Contains(call.SystemPrompt, "CUSTOMHEROIMAGE") {
		t.Error("system prompt should name the hero sentinel")
	}
	if !strings.Contains(call.UserPrompt, "https://acme.example") {
		t.Error("user prompt should carry the brand homepage")
	}
}

func TestGenerateProductCascade(t *testing.T) {
	g := New(testRepo(), &echoCompleter{}, mjml.DefaultOptions)

	res, err := g.Generate(context.Background(), Request{
		EmailType: "product_grid",
		Aesthetic: "pastel_soft",
		Brand:     brandPayload(),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(res.RefinedMJML, "Mug") {
		t.Errorf("expected minimal_clean product section to be used:\n%s", res.RefinedMJML)
	}
	if slices.Contains(res.Metrics.Degraded, StepProducts) {
		t.Error("products step should not be degraded")
	}
}

func TestGenerateProductTypeWithoutProducts(t *testing.T) {
	g := New(testRepo(), &echoCompleter{}, mjml.DefaultOptions)

	res, err := g.Generate(context.Background(), Request{
		EmailType: "promotion",
		Brand:     map[string]any{"website": "acme.example"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(res.RefinedMJML, layout.ProductSectionToken) {
		t.Error("token should be stripped when no products are available")
	}
	if !slices.Contains(res.Metrics.Degraded, StepProducts) {
		t.Errorf("degraded = %v, want products", res.Metrics.Degraded)
	}
}

func TestGenerateNewsletter(t *testing.T) {
	g := New(testRepo(), &echoCompleter{}, mjml.DefaultOptions)

	res, err := g.Generate(context.Background(), Request{EmailType: "newsletter", Aesthetic: "minimal_clean"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Layout.UseProductSectionToken || res.Layout.Block2 == nil {
		t.Errorf("layout = %+v", res.Layout)
	}
	if !strings.Contains(res.RefinedMJML, "Story") {
		t.Error("block2 content missing")
	}
	if !slices.Contains(res.Metrics.Degraded, StepLinks) {
		t.Errorf("missing brand url should degrade links: %v", res.Metrics.Degraded)
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Run("configuration error", func(t *testing.T) {
		g := New(testRepo(), &echoCompleter{}, mjml.DefaultOptions)
		_, err := g.Generate(context.Background(), Request{EmailType: "welcome"})
		if !errors.Is(err, layout.ErrConfiguration) {
			t.Errorf("err = %v, want ErrConfiguration", err)
		}
	})

	t.Run("upstream error", func(t *testing.T) {
		cause := errors.New("rate limited")
		g := New(testRepo(), &echoCompleter{err: cause}, mjml.DefaultOptions)
		_, err := g.Generate(context.Background(), Request{EmailType: "newsletter"})
		var up *UpstreamError
		if !errors.As(err, &up) {
			t.Fatalf("err = %v, want UpstreamError", err)
		}
		if !errors.Is(err, cause) {
			t.Error("UpstreamError should unwrap to the provider error")
		}
	})
}

func TestGenerateRefineResponses(t *testing.T) {
	tests := []struct {
		name      string
		transform func(string) string
		want      string
		degraded  bool
	}{
		{
			name:      "fenced response is unwrapped",
			transform: func(doc string) string { return "```mjml\n" + strings.ReplaceAll(doc, "Story", "Fresh story") + "\n```" },
			want:      "Fresh story",
		},
		{
			name:      "chatter around the document is dropped",
			transform: func(doc string) string { return "Here you go:\n" + strings.ReplaceAll(doc, "Story", "New story") + "\nEnjoy!" },
			want:      "New story",
		},
		{
			name:      "missing root keeps composed document",
			transform: func(string) string { return "<p>Sorry</p>" },
			want:      "Story",
			degraded:  true,
		},
		{
			name:      "truncated close tag keeps composed document",
			transform: func(doc string) string { return strings.TrimSuffix(strings.TrimSpace(strings.ReplaceAll(doc, "Story", "Changed")), ">") },
			want:      "Story",
			degraded:  true,
		},
		{
			name:      "removed sentinel keeps composed document",
			transform: func(doc string) string { return strings.ReplaceAll(strings.ReplaceAll(doc, "CUSTOMHEROIMAGE", "stock"), "Story", "Changed") },
			want:      "Story",
			degraded:  true,
		},
		{
			name: "removed marker keeps composed document",
			transform: func(doc string) string {
				return strings.ReplaceAll(strings.ReplaceAll(doc, "<!-- block2: story.txt -->", ""), "Story", "Changed")
			},
			want:     "Story",
			degraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(testRepo(), &echoCompleter{transform: tt.transform}, mjml.DefaultOptions)
			res, err := g.Generate(context.Background(), Request{EmailType: "newsletter"})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if !strings.Contains(res.RefinedMJML, tt.want) {
				t.Errorf("document missing %q:\n%s", tt.want, res.RefinedMJML)
			}
			if got := slices.Contains(res.Metrics.Degraded, StepRefine); got != tt.degraded {
				t.Errorf("refine degraded = %v, want %v", got, tt.degraded)
			}
		})
	}
}

func TestGenerateSeedIsReproducible(t *testing.T) {
	g := New(testRepo(), &echoCompleter{}, mjml.DefaultOptions)
	req := Request{EmailType: "promotion", Brand: brandPayload(), Seed: "retry-42"}

	a, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Layout.LayoutID != b.Layout.LayoutID || a.RefinedMJML != b.RefinedMJML {
		t.Error("same seed should reproduce the same email")
	}
}

func TestRestyle(t *testing.T) {
	g := New(testRepo(), nil, mjml.DefaultOptions)
	doc := "<mjml><mj-body>" + heroFragment + footerFragment + "</mj-body></mjml>"

	out, skin := g.Restyle(doc, map[string]any{"primary_color": "#0f766e"}, "gradient")
	if skin.ID != "gradient_glow" {
		t.Errorf("skin = %q, want gradient_glow", skin.ID)
	}
	if !strings.Contains(out, "<mj-head>") || !strings.Contains(out, "CUSTOMHEROIMAGE") {
		t.Errorf("restyled document:\n%s", out)
	}
}

func TestInjectProductSection(t *testing.T) {
	const frag = "<mj-section>P</mj-section>"
	tests := []struct {
		name, doc, want string
	}{
		{
			name: "placeholder",
			doc:  "<mj-body>a\n[[PRODUCT_SECTION]]\nb</mj-body>",
			want: "<mj-body>a\n<mj-section>P</mj-section>\nb</mj-body>",
		},
		{
			name: "after first section",
			doc:  "<mj-body><mj-section>1</mj-section><mj-section>2</mj-section></mj-body>",
			want: "<mj-body><mj-section>1</mj-section>\n<mj-section>P</mj-section><mj-section>2</mj-section></mj-body>",
		},
		{
			name: "before body close",
			doc:  "<mjml><mj-body><mj-wrapper></mj-wrapper></mj-body></mjml>",
			want: "<mjml><mj-body><mj-wrapper></mj-wrapper><mj-section>P</mj-section>\n</mj-body></mjml>",
		},
		{
			name: "append",
			doc:  "<mj-text>x</mj-text>",
			want: "<mj-text>x</mj-text>\n<mj-section>P</mj-section>",
		},
		{
			name: "uppercase section close after multibyte text",
			doc:  "<mj-body><mj-section>İİ\xff</MJ-SECTION><mj-section>2</mj-section></mj-body>",
			want: "<mj-body><mj-section>İİ\xff</MJ-SECTION>\n<mj-section>P</mj-section><mj-section>2</mj-section></mj-body>",
		},
		{
			name: "body close after multibyte text",
			doc:  "<mjml><mj-body><mj-raw>İİİ</mj-raw></mj-body></mjml>",
			want: "<mjml><mj-body><mj-raw>İİİ</mj-raw><mj-section>P</mj-section>\n</mj-body></mjml>",
		},
		{
			name: "only first placeholder filled",
			doc:  "[[PRODUCT_SECTION]]|[[PRODUCT_SECTION]]",
			want: "<mj-section>P</mj-section>|",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InjectProductSection(tt.doc, frag); got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestBrandURL(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"website", map[string]any{"website": "acme.com"}, "https://acme.com"},
		{"brandUrl", map[string]any{"brandUrl": "http://acme.com/shop"}, "http://acme.com/shop"},
		{"first usable wins", map[string]any{"website": "not a url", "homepage": "acme.io"}, "https://acme.io"},
		{"brandData mirror", map[string]any{"brandData": map[string]any{"url": "acme.dev"}}, "https://acme.dev"},
		{"none", map[string]any{"name": "Acme"}, ""},
		{"nil payload", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BrandURL(tt.payload); got != tt.want {
				t.Errorf("BrandURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractMJML(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "  <mjml></mjml>\n", "<mjml></mjml>"},
		{"fenced", "```mjml\n<mjml></mjml>\n```", "<mjml></mjml>"},
		{"bare fence", "```\n<mjml><mj-body/></mjml>\n```\n", "<mjml><mj-body/></mjml>"},
		{"preamble and trailer", "Sure!\n<mjml>x</mjml>\nThanks", "<mjml>x</mjml>"},
		{"no document", "nothing here", "nothing here"},
		{"uppercase tags", "Here:\n<MJML><mj-body/></MJML> done", "<MJML><mj-body/></MJML>"},
		{
			"dotted capital I in content",
			"<mjml><mj-body><mj-text>İstanbul İndirim</mj-text></mj-body></mjml>",
			"<mjml><mj-body><mj-text>İstanbul İndirim</mj-text></mj-body></mjml>",
		},
		{"dotted capital I in preamble", "Here you go İ:\n<mjml>x</mjml>", "<mjml>x</mjml>"},
		{"invalid utf-8", "<mjml><mj-text>\xff\xfe</mj-text></mjml>", "<mjml><mj-text>\xff\xfe</mj-text></mjml>"},
		{"invalid utf-8 in preamble", "\xff\xff\xff ok\n<mjml>y</mjml>\xfe", "<mjml>y</mjml>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractMJML(tt.in); got != tt.want {
				t.Errorf("extractMJML = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "h..." {
		t.Errorf("truncate split a rune: %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
