package diagram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeEngine records calls and answers from a function.
type fakeEngine struct {
	mu      sync.Mutex
	inits   []Theme
	ids     []string
	codes   []string
	initErr error
	render  func(ctx context.Context, code string) (string, error)
}

func (f *fakeEngine) Initialize(_ context.Context, theme Theme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits = append(f.inits, theme)
	return f.initErr
}

func (f *fakeEngine) Render(ctx context.Context, code, id string) (string, error) {
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.codes = append(f.codes, code)
	f.mu.Unlock()
	if f.render != nil {
		return f.render(ctx, code)
	}
	return `<svg id="` + id + `"></svg>`, nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes)
}

const block = `<pre><code class="language-mermaid">graph TD
A --&gt; B
</code></pre>`

func TestProcess_NoDiagramsIsNoop(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	p := NewProcessor(eng)
	in := "<h1>Hi</h1>\n<pre><code class=\"language-go\">x</code></pre>"

	out, report := p.Process(context.Background(), in, LightTheme)
	if out != in {
		t.Errorf("output changed: %q", out)
	}
	if report != (Report{}) {
		t.Errorf("report = %+v, want zero", report)
	}
	if len(eng.inits) != 0 || eng.calls() != 0 {
		t.Errorf("engine touched: inits=%d renders=%d", len(eng.inits), eng.calls())
	}
}

func TestProcess_ReplacesBlocks(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	p := NewProcessor(eng)
	in := "<p>before</p>\n" + block + "\n<p>middle</p>\n" + block + "\n<p>after</p>"

	out, report := p.Process(context.Background(), in, LightTheme)

	if report != (Report{Found: 2, Rendered: 2}) {
		t.Errorf("report = %+v", report)
	}
	if strings.Contains(out, "language-mermaid") {
		t.Errorf("diagram block left in output: %q", out)
	}
	if got := strings.Count(out, `<div class="mermaid-container"><svg`); got != 2 {
		t.Errorf("containers = %d, want 2", got)
	}
	for _, want := range []string{"<p>before</p>", "<p>middle</p>", "<p>after</p>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if eng.codes[0] != "graph TD\nA --> B\n" {
		t.Errorf("engine received %q, want unescaped source", eng.codes[0])
	}
	if eng.ids[0] == eng.ids[1] {
		t.Errorf("element ids collide: %q", eng.ids[0])
	}
	if !strings.HasPrefix(eng.ids[0], "mermaid-") {
		t.Errorf("id %q lacks mermaid- prefix", eng.ids[0])
	}
}

func TestProcess_Idempotent(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	p := NewProcessor(eng)

	once, _ := p.Process(context.Background(), block, LightTheme)
	twice, report := p.Process(context.Background(), once, LightTheme)
	if twice != once {
		t.Errorf("second pass changed output:\n%s\n%s", once, twice)
	}
	if report.Found != 0 || eng.calls() != 1 {
		t.Errorf("second pass found=%d engine calls=%d", report.Found, eng.calls())
	}
}

func TestProcess_RenderErrorIsInline(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{render: func(context.Context, string) (string, error) {
		return "", errors.New("Parse error on line 2 <bad>")
	}}
	p := NewProcessor(eng)

	out, report := p.Process(context.Background(), "<p>ok</p>"+block, LightTheme)
	if report != (Report{Found: 1, Failed: 1}) {
		t.Errorf("report = %+v", report)
	}
	want := `<div class="mermaid-error">Failed to render diagram: Parse error on line 2 &lt;bad&gt;</div>`
	if !strings.Contains(out, want) {
		t.Errorf("output %q missing %q", out, want)
	}
	if !strings.HasPrefix(out, "<p>ok</p>") {
		t.Errorf("surrounding markup lost: %q", out)
	}
}

func TestProcess_TimeoutBecomesPlaceholder(t *testing.T) {
	t.Parallel()

	never := make(chan struct{})
	defer close(never)
	eng := &fakeEngine{render: func(context.Context, string) (string, error) {
		<-never // ignores ctx on purpose
		return "", nil
	}}
	p := NewProcessor(eng, WithTimeout(50*time.Millisecond))

	start := time.Now()
	out, report := p.Process(context.Background(), "<h1>Doc</h1>"+block+"<p>tail</p>", LightTheme)
	elapsed := time.Since(start)

	if elapsed > DefaultTimeout {
		t.Errorf("took %s, want under %s", elapsed, DefaultTimeout)
	}
	if report.Failed != 1 {
		t.Errorf("report = %+v, want one failure", report)
	}
	if !strings.Contains(out, `<div class="mermaid-error">Failed to render diagram: diagram render timed out`) {
		t.Errorf("missing timeout placeholder: %q", out)
	}
	if !strings.Contains(out, "<h1>Doc</h1>") || !strings.Contains(out, "<p>tail</p>") {
		t.Errorf("rest of document lost: %q", out)
	}
}

func TestProcess_DefaultTimeoutWithinFiveSeconds(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{render: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	p := NewProcessor(eng)

	start := time.Now()
	out, _ := p.Process(context.Background(), block, LightTheme)
	if elapsed := time.Since(start); elapsed > DefaultTimeout+time.Second {
		t.Errorf("took %s", elapsed)
	}
	if !strings.Contains(out, "mermaid-error") {
		t.Errorf("missing error placeholder: %q", out)
	}
}

func TestProcess_InitializesOncePerTheme(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	p := NewProcessor(eng)
	ctx := context.Background()

	p.Process(ctx, block, LightTheme)
	p.Process(ctx, block, LightTheme)
	p.Process(ctx, block, DarkTheme)

	if len(eng.inits) != 2 {
		t.Fatalf("inits = %d, want 2", len(eng.inits))
	}
	if eng.inits[1] != DarkTheme {
		t.Errorf("second init theme = %+v", eng.inits[1])
	}
}

// themedEngine renders the name of the theme active on the page, like
// mermaid's global initialize. The first render parks until released.
type themedEngine struct {
	mu      sync.Mutex
	current string
	parked  chan struct{}
	release chan struct{}
	once    sync.Once
}

func (e *themedEngine) Initialize(_ context.Context, theme Theme) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = theme.Name
	return nil
}

func (e *themedEngine) Render(_ context.Context, _, _ string) (string, error) {
	first := false
	e.once.Do(func() { first = true })
	if first {
		close(e.parked)
		<-e.release
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return "<svg>" + e.current + "</svg>", nil
}

func TestProcess_ConcurrentThemesDoNotInterleave(t *testing.T) {
	t.Parallel()

	eng := &themedEngine{parked: make(chan struct{}), release: make(chan struct{})}
	p := NewProcessor(eng, WithTimeout(5*time.Second))

	lightOut := make(chan string, 1)
	go func() {
		out, _ := p.Process(context.Background(), block, LightTheme)
		lightOut <- out
	}()
	<-eng.parked

	darkOut := make(chan string, 1)
	go func() {
		out, _ := p.Process(context.Background(), block, DarkTheme)
		darkOut <- out
	}()
	// Give the dark call time to reach the engine if it could.
	time.Sleep(50 * time.Millisecond)
	close(eng.release)

	if out := <-lightOut; !strings.Contains(out, "<svg>light</svg>") {
		t.Errorf("light Process output = %q, want light theme", out)
	}
	if out := <-darkOut; !strings.Contains(out, "<svg>dark</svg>") {
		t.Errorf("dark Process output = %q, want dark theme", out)
	}
}

func TestProcess_InitErrorFailsEveryBlock(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{initErr: errors.New("script not loaded")}
	p := NewProcessor(eng)

	out, report := p.Process(context.Background(), block+block, LightTheme)
	if report != (Report{Found: 2, Failed: 2}) {
		t.Errorf("report = %+v", report)
	}
	if strings.Count(out, "mermaid-error") != 2 {
		t.Errorf("output = %q", out)
	}
	if eng.calls() != 0 {
		t.Errorf("render called %d times after failed init", eng.calls())
	}
}

func TestDetectType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want string
	}{
		{"graph TD\nA-->B", "flowchart"},
		{"flowchart LR\nA-->B", "flowchart"},
		{"\n  sequenceDiagram\nA->>B: hi", "sequence"},
		{"%% comment\nclassDiagram", "class"},
		{"stateDiagram-v2", "state"},
		{"erDiagram", "er"},
		{"gantt\ntitle x", "gantt"},
		{"pie title Pets", "pie"},
		{"gitGraph", "git"},
		{"mindmap", "mindmap"},
		{"nonsense", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := DetectType(tt.code); got != tt.want {
			t.Errorf("DetectType(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestThemeByName(t *testing.T) {
	t.Parallel()

	if ThemeByName("DARK") != DarkTheme {
		t.Error("DARK should map to DarkTheme")
	}
	if ThemeByName("") != LightTheme || ThemeByName("solarized") != LightTheme {
		t.Error("unknown names should map to LightTheme")
	}
}

func TestHas(t *testing.T) {
	t.Parallel()

	if !Has(block) {
		t.Error("Has(block) = false")
	}
	if Has(`<div class="mermaid-container"><svg></svg></div>`) {
		t.Error("Has(container) = true")
	}
}
