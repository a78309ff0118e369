package game

import "testing"

func TestSlugify_Examples(t *testing.T) {
	cases := map[string]string{
		"My Cool Game!!":       "my-cool-game",
		"  Space   Invaders  ": "space-invaders",
		"snake_case_title":     "snake-case-title",
		"Already-Slugged":      "already-slugged",
		"Tetris 2048":          "tetris-2048",
		"--hyphens--":          "hyphens",
		"!!!":                  "",
		"":                     "",
	}

	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	titles := []string{
		"My Cool Game!!",
		"UPPER lower MiXeD",
		"a__b  c--d",
		"平台跳跃 platformer",
	}

	for _, title := range titles {
		once := Slugify(title)
		if twice := Slugify(once); twice != once {
			t.Fatalf("Slugify not idempotent for %q: %q != %q", title, once, twice)
		}
	}
}

func TestValidCategory(t *testing.T) {
	if !ValidCategory("Action") {
		t.Fatal("expected Action to be a valid category")
	}
	if ValidCategory("NotACategory") {
		t.Fatal("expected NotACategory to be rejected")
	}
}

func TestParseSortOrder_Fallback(t *testing.T) {
	if got := ParseSortOrder("bogus"); got != SortNewest {
		t.Fatalf("expected fallback to newest, got %q", got)
	}
	if got := ParseSortOrder("mostPlayed"); got != SortMostPlayed {
		t.Fatalf("expected mostPlayed, got %q", got)
	}
}
