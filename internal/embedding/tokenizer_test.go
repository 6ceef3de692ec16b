package embedding

import (
	"reflect"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsToken {
		t.Errorf("expected CLS %d, got %d", clsToken, ids[0])
	}
	if ids[3] != sepToken {
		t.Errorf("expected SEP at 3, got %d", ids[3])
	}
	for i, want := range []int64{1, 1, 1, 1, 0} {
		if attn[i] != want {
			t.Errorf("attention[%d] = %d, want %d", i, attn[i], want)
		}
	}
	for _, id := range ids[1:3] {
		if id < 1000 || id >= vocabSize {
			t.Errorf("word id %d outside [1000, %d)", id, vocabSize)
		}
	}
}

func TestSimpleTokenizer_truncates(t *testing.T) {
	ids, attn, _ := (&SimpleTokenizer{}).Tokenize("a b c d e f g h", 4)
	if len(ids) != 4 {
		t.Fatalf("len = %d", len(ids))
	}
	if ids[3] != sepToken || attn[3] != 1 {
		t.Errorf("last slot should be SEP: ids=%v", ids)
	}
}

func TestWords(t *testing.T) {
	got := Words("  Hello, WORLD! it's 2024  ")
	want := []string{"hello", "world", "it", "s", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %v, want %v", got, want)
	}
	if len(Words("")) != 0 {
		t.Error("empty string should have no words")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should hash differently")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}

func TestPackBatch(t *testing.T) {
	tok := &SimpleTokenizer{}
	texts := []string{"first text", "second", ""}
	b := PackBatch(tok, texts, 8)
	if b.Rows != 3 || b.Width != 8 {
		t.Fatalf("shape = [%d, %d], want [3, 8]", b.Rows, b.Width)
	}
	for _, s := range [][]int64{b.InputIDs, b.AttentionMask, b.TokenTypeIDs} {
		if len(s) != 24 {
			t.Fatalf("flattened length = %d, want 24", len(s))
		}
	}
	for row, text := range texts {
		ids, mask, _ := tok.Tokenize(text, 8)
		if !reflect.DeepEqual(b.InputIDs[row*8:(row+1)*8], ids) {
			t.Errorf("row %d ids = %v, want %v", row, b.InputIDs[row*8:(row+1)*8], ids)
		}
		if !reflect.DeepEqual(b.AttentionMask[row*8:(row+1)*8], mask) {
			t.Errorf("row %d mask = %v, want %v", row, b.AttentionMask[row*8:(row+1)*8], mask)
		}
	}
	if empty := PackBatch(tok, nil, 8); empty.Rows != 0 || len(empty.InputIDs) != 0 {
		t.Errorf("empty batch = %+v", empty)
	}
}
