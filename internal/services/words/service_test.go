package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/model"
)

type ServiceSuite struct {
	suite.Suite
	random *mocks.MockRandom
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
}

func (s *ServiceSuite) TestLoadDefaults() {
	svc, err := Load("", s.random)
	s.Require().NoError(err)

	all := svc.All()
	for _, d := range model.Difficulties {
		s.NotEmpty(all[d], "difficulty %s", d)
	}
}

func (s *ServiceSuite) TestLoadFromFile() {
	path := filepath.Join(s.T().TempDir(), "words.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("easy: [a, b]\nhard: [zzz]\n"), 0o644))

	svc, err := Load(path, s.random)
	s.Require().NoError(err)
	s.Equal([]string{"a", "b"}, svc.All()[model.DifficultyEasy])
	s.Empty(svc.All()[model.DifficultyNormal])
}

func (s *ServiceSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "missing.yaml"), s.random)
	s.Error(err)
}

func (s *ServiceSuite) TestParseRejectsUnknownDifficulty() {
	_, err := Parse([]byte("impossible: [x]\n"), s.random)
	s.ErrorIs(err, ErrUnknownDifficulty)
}

func (s *ServiceSuite) TestParseRejectsEmpty() {
	_, err := Parse([]byte("easy: []\n"), s.random)
	s.ErrorIs(err, ErrEmptyWordList)
}

func (s *ServiceSuite) TestAllReturnsCopy() {
	svc, err := Parse([]byte("easy: [a, b]\n"), s.random)
	s.Require().NoError(err)

	svc.All()[model.DifficultyEasy][0] = "mutated"
	s.Equal("a", svc.All()[model.DifficultyEasy][0])
}

func (s *ServiceSuite) TestPick() {
	svc, err := Parse([]byte("normal: [a, b, c, d]\n"), s.random)
	s.Require().NoError(err)
	s.random.QueueIntn(3, 0)

	picked, err := svc.Pick(model.DifficultyNormal, 2)
	s.Require().NoError(err)
	s.Equal([]string{"d", "b"}, picked)
}

func (s *ServiceSuite) TestPickCapsAtListSize() {
	svc, err := Parse([]byte("hard: [x, y]\n"), s.random)
	s.Require().NoError(err)

	picked, err := svc.Pick(model.DifficultyHard, 10)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"x", "y"}, picked)
}

func (s *ServiceSuite) TestPickUnknownDifficulty() {
	svc, err := Load("", s.random)
	s.Require().NoError(err)

	_, err = svc.Pick("extreme", 1)
	s.ErrorIs(err, ErrUnknownDifficulty)
}
