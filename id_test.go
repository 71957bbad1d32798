package homie5

// test identifier validation, domains and references

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomieID_0(t *testing.T) {
	// test a valid id
	i := "now-is-the-time-4"
	id, err := NewHomieID(i)
	if err != nil || id.String() != i {
		t.Errorf("NewHomieID(%s) yields %s, %v", i, id, err)
	}
}

func TestHomieID_1(t *testing.T) {
	// upper case is not folded, it is rejected
	i := "now-Is-The-Time"
	_, err := NewHomieID(i)
	if !errors.Is(err, ErrInvalidHomieID) {
		t.Errorf("NewHomieID(%s) did not fail: %v", i, err)
	}
}

func TestHomieID_2(t *testing.T) {
	// test invalid ids
	for _, i := range []string{"", "now_is", "a/b", "$state", "a+", "ä"} {
		_, err := NewHomieID(i)
		var idErr *InvalidHomieIDError
		if !errors.As(err, &idErr) {
			t.Errorf("NewHomieID(%q) yields %v", i, err)
			continue
		}
		if idErr.ID != i {
			t.Errorf("error for %q carries id %q", i, idErr.ID)
		}
	}
}

func TestHomieID_3(t *testing.T) {
	// a bad id in a literal is a programming error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustHomieID did not panic")
		}
	}()
	MustHomieID("Bad")
}

func TestHomieIDJSON(t *testing.T) {
	var m map[HomieID]int
	require.NoError(t, json.Unmarshal([]byte(`{"light":1}`), &m))
	assert.Equal(t, 1, m["light"])

	err := json.Unmarshal([]byte(`{"Light":1}`), &m)
	assert.ErrorIs(t, err, ErrInvalidHomieID)
}

func TestHomieDomain(t *testing.T) {
	d, err := NewHomieDomain("homie")
	require.NoError(t, err)
	assert.Equal(t, DefaultDomain, d)
	assert.True(t, d.IsDefault())

	d, err = NewHomieDomain("+")
	require.NoError(t, err)
	assert.Equal(t, AllDomains, d)
	assert.True(t, d.IsAll())
	assert.Equal(t, "+", d.String())

	d, err = NewHomieDomain("my-domain")
	require.NoError(t, err)
	assert.False(t, d.IsDefault())
	assert.Equal(t, "my-domain", d.String())
	assert.Equal(t, MustHomieDomain("my-domain"), d)

	assert.Equal(t, DefaultDomain, HomieDomain{})

	for _, bad := range []string{"", "a/b", "a#", "ho+me"} {
		_, err := NewHomieDomain(bad)
		assert.ErrorIs(t, err, ErrInvalidHomieDomain, bad)
	}
}

func TestHomieDomainText(t *testing.T) {
	var cfg struct {
		Domain HomieDomain `json:"domain"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"domain":"test"}`), &cfg))
	assert.Equal(t, "test", cfg.Domain.String())

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"domain":"test"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"domain":"a/b"}`), &cfg))
}

func TestRefTopics(t *testing.T) {
	dev := NewDeviceRef(DefaultDomain, "dev-1")
	node := NodeRefFromDevice(dev, "light")
	prop := PropertyRefFromNode(node, "state")

	assert.Equal(t, "homie/5/dev-1", dev.ToTopic())
	assert.Equal(t, "homie/5/dev-1/$state", dev.ToTopicWithSubpath("$state"))
	assert.Equal(t, "homie/5/dev-1/light", node.ToTopic())
	assert.Equal(t, "homie/5/dev-1/light/state", prop.ToTopic())
	assert.Equal(t, "homie/5/dev-1/light/state/set", prop.ToTopicWithSubpath("set"))

	assert.Equal(t, HomieID("light"), prop.NodeID())
	assert.Equal(t, HomieID("state"), prop.PropID())
	assert.Equal(t, node, prop.NodeRef())
	assert.Equal(t, prop, NewPropertyRef(DefaultDomain, "dev-1", "light", "state"))
}

func TestRefEquality(t *testing.T) {
	dev := NewDeviceRef(DefaultDomain, "dev-1")
	other := NewDeviceRef(MustHomieDomain("test"), "dev-1")
	node := NodeRefFromDevice(dev, "light")
	prop := PropertyRefFromNode(node, "state")
	otherNodeProp := NewPropertyRef(DefaultDomain, "dev-1", "other", "state")

	tests := []struct {
		name string
		a, b Ref
		want bool
	}{
		{"device device", dev, dev, true},
		{"device other domain", dev, other, false},
		{"node device", node, dev, true},
		{"property device", prop, dev, true},
		{"property node", prop, node, true},
		{"property other node", otherNodeProp, node, false},
		{"property property", prop, NewPropertyRef(DefaultDomain, "dev-1", "light", "state"), true},
		{"property sibling", prop, NewPropertyRef(DefaultDomain, "dev-1", "light", "brightness"), false},
		{"property other device", prop, other, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a), "symmetry")
		})
	}

	assert.False(t, dev.Equal(nil))
	assert.True(t, prop.MatchWithNode(node, "state"))
	assert.False(t, prop.MatchWithNode(node, "brightness"))
	assert.True(t, prop.MatchWithDevice(dev, "light", "state"))
}

func TestTopicBuilder(t *testing.T) {
	base := NewTopicBuilder(MustHomieDomain("test"))
	dev := base.AddID("dev")

	assert.Equal(t, "test/5", base.Build())
	assert.Equal(t, "test/5/dev", dev.Build())
	assert.Equal(t, "test/5/dev/$state", dev.AddAttr("$state").Build())
	assert.Equal(t, "test/5/dev", dev.String(), "builders are values")
	assert.Equal(t, "test/5/a/b/c", NewTopicBuilderForProperty(MustHomieDomain("test"), "a", "b", "c").Build())
}

func TestStatusAndLevels(t *testing.T) {
	for _, s := range []string{"init", "ready", "disconnected", "sleeping", "lost"} {
		st, err := ParseDeviceStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, st.String())
	}
	_, err := ParseDeviceStatus("alert")
	assert.ErrorIs(t, err, ErrInvalidDeviceState)
	assert.EqualError(t, err, "Invalid device state: [alert]! Only: init, ready, disconnected, sleeping and lost are allowed.")

	for _, l := range []string{"debug", "info", "warn", "error", "fatal"} {
		_, err := ParseDeviceLogLevel(l)
		assert.NoError(t, err)
	}
	_, err = ParseDeviceLogLevel("trace")
	assert.ErrorIs(t, err, ErrInvalidDeviceLogLevel)
}
