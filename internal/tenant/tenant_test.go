package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/validate"
)

func TestDefaultCatalogContent(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultID, cfg.ID)
	assert.Equal(t, "NetVenture Academy", cfg.Name)
	assert.Len(t, cfg.Strands, 8)
	assert.Len(t, cfg.Challenges, 32)
	assert.Len(t, cfg.Glossary, 10)
	assert.Len(t, cfg.SupportLinks, 4)
	assert.NotEmpty(t, cfg.Posters)
	assert.Equal(t, "03ac674216f3e15c761ee1a5e255f067953623c8b388b4459e13f978d7c846f4", cfg.AdminPINHash)

	ch, ok := cfg.Challenge("s1c1")
	require.True(t, ok)
	assert.Equal(t, "Avatar Workshop", ch.Title.EN)
	assert.Equal(t, 30, ch.Points)
	assert.Equal(t, curriculum.TierKS1, ch.Level)
	assert.True(t, ch.Enabled)

	for _, team := range curriculum.Teams() {
		assert.Equal(t, string(team), cfg.TeamName(team))
	}
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Challenges[0].Points = 999
	a.TeamNames[curriculum.TeamHood] = "Sherwood"

	b := Default()
	assert.Equal(t, 30, b.Challenges[0].Points)
	assert.Equal(t, "Hood", b.TeamName(curriculum.TeamHood))
}

func TestResolveFallsBackToDefault(t *testing.T) {
	other := Default()
	other.ID = "hill-school"
	other.Name = "Hill School"
	c := NewCatalog(Default(), other)

	assert.Equal(t, "hill-school", c.Resolve("hill-school").ID)
	assert.Equal(t, DefaultID, c.Resolve("no-such-school").ID)
	assert.Equal(t, DefaultID, c.Resolve("").ID)

	_, ok := c.Lookup("no-such-school")
	assert.False(t, ok)
}

func TestEmptyCatalogHoldsDefault(t *testing.T) {
	c := NewCatalog()
	require.Equal(t, 1, c.Len())
	assert.Equal(t, DefaultID, c.Default().ID)
}

func TestAddAndPut(t *testing.T) {
	c := NewCatalog()
	assert.ErrorIs(t, c.Add(Default()), ErrTenantExists)

	cfg := c.Default()
	cfg.Name = "Renamed"
	require.NoError(t, c.Put(cfg))
	assert.Equal(t, "Renamed", c.Default().Name)

	cfg.ID = "ghost"
	assert.ErrorIs(t, c.Put(cfg), ErrNotFound)
}

func TestUpsertChallenge(t *testing.T) {
	cfg := Default()
	ch := curriculum.Challenge{
		ID:      "custom1",
		Strand:  3,
		Title:   curriculum.Text{EN: "Footprint Audit"},
		Points:  45,
		Level:   curriculum.TierAll,
		Enabled: true,
	}
	out, err := UpsertChallenge(cfg, ch)
	require.NoError(t, err)
	assert.Len(t, out.Challenges, 33)
	assert.Len(t, cfg.Challenges, 32, "input must not change")

	ch.Points = 60
	out, err = UpsertChallenge(out, ch)
	require.NoError(t, err)
	got, _ := out.Challenge("custom1")
	assert.Equal(t, 60, got.Points)
	assert.Len(t, out.Challenges, 33)

	ch.Strand = 42
	_, err = UpsertChallenge(out, ch)
	assert.ErrorIs(t, err, ErrUnknownStrand)

	ch.Strand = 2
	_, err = UpsertChallenge(out, ch)
	assert.ErrorIs(t, err, ErrImmutableField)

	_, err = UpsertChallenge(cfg, curriculum.Challenge{ID: "bad", Strand: 1, Points: -1, Level: "ks9"})
	assert.ErrorIs(t, err, validate.ErrInvalid)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Default()))

	cfg := Default()
	cfg.Strands = cfg.Strands[:2]
	assert.ErrorIs(t, Validate(cfg), ErrUnknownStrand)

	cfg = Default()
	cfg.SupportLinks[0].URL = "not a url"
	assert.ErrorIs(t, Validate(cfg), validate.ErrInvalid)

	cfg = Default()
	cfg.TeamNames["Gryffindor"] = "Lions"
	assert.ErrorIs(t, Validate(cfg), curriculum.ErrInvalidTeam)

	cfg = Default()
	cfg.Name = " "
	assert.ErrorIs(t, Validate(cfg), validate.ErrInvalid)
}

func TestRemoveAndToggleChallenge(t *testing.T) {
	cfg := Default()
	out, err := SetChallengeEnabled(cfg, "s2c1", false)
	require.NoError(t, err)
	ch, _ := out.Challenge("s2c1")
	assert.False(t, ch.Enabled)

	out, err = RemoveChallenge(out, "s2c1")
	require.NoError(t, err)
	_, ok := out.Challenge("s2c1")
	assert.False(t, ok)

	_, err = RemoveChallenge(out, "s2c1")
	assert.ErrorIs(t, err, ErrUnknownChallenge)
	_, err = SetChallengeEnabled(out, "nope", true)
	assert.ErrorIs(t, err, ErrUnknownChallenge)
}

func TestStrandEdits(t *testing.T) {
	cfg := Default()
	out, err := SetStrandTitle(cfg, 2, curriculum.Text{EN: "Friends Online"})
	require.NoError(t, err)
	s, _ := out.Strand(2)
	assert.Equal(t, "Friends Online", s.Title.EN)

	_, err = SetStrandTitle(cfg, 99, curriculum.Text{EN: "x"})
	assert.ErrorIs(t, err, ErrUnknownStrand)

	out, added, err := AddStrand(out, curriculum.Text{EN: "AI Literacy"})
	require.NoError(t, err)
	assert.Equal(t, 9, added.Number)
	assert.Len(t, out.Strands, 9)

	_, _, err = AddStrand(out, curriculum.Text{})
	assert.ErrorIs(t, err, validate.ErrInvalid)
}

func TestContactEdits(t *testing.T) {
	cfg := Default()
	out, err := UpsertSupportLink(cfg, curriculum.SupportLink{
		ID:   "h5",
		Name: curriculum.Text{EN: "NSPCC"},
		URL:  "https://www.nspcc.org.uk",
	})
	require.NoError(t, err)
	assert.Len(t, out.SupportLinks, 5)

	out, err = RemoveSupportLink(out, "h1")
	require.NoError(t, err)
	assert.Len(t, out.SupportLinks, 4)
	_, err = RemoveSupportLink(out, "h1")
	assert.ErrorIs(t, err, ErrNotFound)

	out, err = UpsertStaff(out, curriculum.StaffMember{ID: "t2", Name: "Sam Okafor", Role: "Computing Lead"})
	require.NoError(t, err)
	assert.Len(t, out.Staff, 2)
	out, err = RemoveStaff(out, "t1")
	require.NoError(t, err)
	assert.Len(t, out.Staff, 1)
	_, err = RemoveStaff(out, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityAndTeamNames(t *testing.T) {
	cfg := Default()
	out, err := UpdateIdentity(cfg, Identity{
		Name:         " Hill School ",
		SupportEmail: "safe@hill.sch.uk",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hill School", out.Name)

	_, err = UpdateIdentity(cfg, Identity{Name: "x", SupportEmail: "not-an-email"})
	assert.ErrorIs(t, err, validate.ErrInvalid)

	out, err = SetTeamName(out, curriculum.TeamHood, "Sherwood")
	require.NoError(t, err)
	assert.Equal(t, "Sherwood", out.TeamName(curriculum.TeamHood))

	_, err = SetTeamName(out, curriculum.Team("Gryffindor"), "x")
	assert.ErrorIs(t, err, curriculum.ErrInvalidTeam)

	assert.Equal(t, "new-hash", SetPINHash(out, "new-hash").AdminPINHash)
}

func TestNewTenantSlugIsUnique(t *testing.T) {
	c := NewCatalog()
	cfg, err := NewTenant(c, "St. Mary Primary", "hash")
	require.NoError(t, err)
	assert.Equal(t, "st-mary-primary", cfg.ID)
	assert.Len(t, cfg.Challenges, 32)
	require.NoError(t, c.Add(cfg))

	again, err := NewTenant(c, "St Mary Primary", "hash")
	require.NoError(t, err)
	assert.Equal(t, "st-mary-primary-2", again.ID)

	_, err = NewTenant(c, "  ", "hash")
	assert.ErrorIs(t, err, validate.ErrInvalid)
}

func TestComplianceDefaultPasses(t *testing.T) {
	r := Compliance(Default())
	assert.True(t, r.Passed, "%+v", r.Checks)
	assert.Equal(t, DefaultID, r.TenantID)
}

func TestComplianceReportsGaps(t *testing.T) {
	cfg := Default()
	cfg.Glossary = cfg.Glossary[:3]
	cfg.Challenges = cfg.Challenges[:4]
	r := Compliance(cfg)
	assert.False(t, r.Passed)

	byName := map[string]Check{}
	for _, c := range r.Checks {
		byName[c.Name] = c
	}
	assert.False(t, byName["glossary"].Passed)
	assert.False(t, byName["challenges"].Passed)
	assert.False(t, byName["strand_coverage"].Passed)
	assert.Contains(t, byName["strand_coverage"].Detail, "strand 2/ks1")
	assert.True(t, byName["support_email"].Passed)
}

func TestYAMLRoundTrip(t *testing.T) {
	data, err := MarshalYAML(Default())
	require.NoError(t, err)
	cfg, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = ParseYAML([]byte("name: nobody\n"))
	assert.ErrorIs(t, err, ErrBadDocument)
	_, err = ParseYAML([]byte("id: x\nunknown_key: 1\n"))
	assert.ErrorIs(t, err, ErrBadDocument)
}
