package domain

import (
	"encoding/json"
	"testing"
)

func TestCardPowerOrdering(t *testing.T) {
	if ThreeOfDiamonds.Power() != 0 {
		t.Errorf("3D must sit at the bottom of the order")
	}
	if (Card{Rank: Two, Suit: Spades}).Power() != DeckSize-1 {
		t.Errorf("2S must sit at the top of the order")
	}
	// Rank dominates suit: the 4D outranks the 3S.
	if (Card{Rank: Four, Suit: Diamonds}).Power() <= (Card{Rank: Three, Suit: Spades}).Power() {
		t.Errorf("rank must decide before suit")
	}
}

func TestParseCard(t *testing.T) {
	tests := []struct {
		id      string
		want    Card
		wantErr bool
	}{
		{id: "3D", want: ThreeOfDiamonds},
		{id: "10C", want: Card{Rank: Ten, Suit: Clubs}},
		{id: "KS", want: Card{Rank: King, Suit: Spades}},
		{id: "2H", want: Card{Rank: Two, Suit: Hearts}},
		{id: "1D", wantErr: true},
		{id: "KX", wantErr: true},
		{id: "K", wantErr: true},
		{id: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCard(tt.id)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCard(%q): expected error", tt.id)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCard(%q): %v", tt.id, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCard(%q) = %v, want %v", tt.id, got, tt.want)
		}
		if got.String() != tt.id {
			t.Errorf("String() = %q, want %q", got.String(), tt.id)
		}
	}
}

func TestCardWireShape(t *testing.T) {
	data, err := json.Marshal(Card{Rank: King, Suit: Spades})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"rank":"K","suit":"S"}` {
		t.Errorf("unexpected wire shape %s", data)
	}

	var c Card
	if err := json.Unmarshal([]byte(`{"rank":"10","suit":"D"}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c != (Card{Rank: Ten, Suit: Diamonds}) {
		t.Errorf("unexpected card %v", c)
	}

	if err := json.Unmarshal([]byte(`{"rank":"11","suit":"D"}`), &c); err == nil {
		t.Errorf("expected an error for an unknown rank")
	}
	if err := json.Unmarshal([]byte(`{"rank":"K","suit":"Z"}`), &c); err == nil {
		t.Errorf("expected an error for an unknown suit")
	}
}
