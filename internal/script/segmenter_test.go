package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.uber.org/zap"
)

func TestNewSegmenter(t *testing.T) {
	t.Run("should create segmenter with no-op logger by default", func(t *testing.T) {
		// Act
		sg := NewSegmenter()

		// Assert
		assert.NotNil(t, sg)
	})

	t.Run("should tolerate nil logger", func(t *testing.T) {
		// Act
		sg := NewSegmenterWithLogger(nil)

		// Assert
		assert.NotNil(t, sg)
	})
}

func TestSegmenter_IsMarkerLine(t *testing.T) {
	sg := NewSegmenterWithLogger(zap.NewNop())

	t.Run("should recognize all marker forms case-insensitively", func(t *testing.T) {
		markers := []string{
			"SCENE 3",
			"scene 12",
			"INT. KITCHEN - DAY",
			"ext. street - night",
			"FADE IN:",
			"CUT TO:",
			"1. Opening",
			"Chapter 4",
			"ACT II",
		}

		for _, line := range markers {
			assert.True(t, sg.IsMarkerLine(line), "expected marker: %q", line)
		}
	})

	t.Run("should not flag ordinary prose", func(t *testing.T) {
		prose := []string{
			"She cooks dinner.",
			"He walks away slowly.",
			"The interval was long.",
		}

		for _, line := range prose {
			assert.False(t, sg.IsMarkerLine(line), "unexpected marker: %q", line)
		}
	})
}

func TestSegmenter_Segment(t *testing.T) {
	sg := NewSegmenter()

	t.Run("should split scenes at marker lines", func(t *testing.T) {
		// Arrange
		text := "INT. KITCHEN\nShe cooks dinner.\nEXT. STREET\nHe walks away."

		// Act
		scenes := sg.Segment(text)

		// Assert
		assert.Len(t, scenes, 2)
		assert.Equal(t, 1, scenes[0].SceneNumber)
		assert.Equal(t, "She cooks dinner.", scenes[0].Text)
		assert.Equal(t, []string{"INT. KITCHEN"}, scenes[0].Markers)
		assert.Equal(t, 2, scenes[1].SceneNumber)
		assert.Equal(t, "He walks away.", scenes[1].Text)
		assert.Equal(t, []string{"EXT. STREET"}, scenes[1].Markers)
	})

	t.Run("should assign contiguous scene numbers starting at one", func(t *testing.T) {
		// Arrange
		text := "SCENE 1\nfirst\nSCENE 2\nsecond\nSCENE 3\nthird"

		// Act
		scenes := sg.Segment(text)

		// Assert
		assert.Len(t, scenes, 3)
		for i, scene := range scenes {
			assert.Equal(t, i+1, scene.SceneNumber)
			assert.NoError(t, scene.Validate())
		}
	})

	t.Run("should attach consecutive leading markers to the same scene", func(t *testing.T) {
		// Arrange
		text := "FADE IN:\nINT. KITCHEN - DAY\nShe cooks dinner."

		// Act
		scenes := sg.Segment(text)

		// Assert
		assert.Len(t, scenes, 1)
		assert.Equal(t, []string{"FADE IN:", "INT. KITCHEN - DAY"}, scenes[0].Markers)
		assert.Equal(t, "She cooks dinner.", scenes[0].Text)
	})

	t.Run("should emit one whole-text scene when no markers exist", func(t *testing.T) {
		// Arrange
		text := "Just a plain block of narration\nwith no structural cues at all."

		// Act
		scenes := sg.Segment(text)

		// Assert
		assert.Len(t, scenes, 1)
		assert.Equal(t, 1, scenes[0].SceneNumber)
		assert.Empty(t, scenes[0].Markers)
		assert.Equal(t, len(strings.Fields(text)), scenes[0].WordCount)
	})

	t.Run("should join multi-line prose with spaces and skip blank lines", func(t *testing.T) {
		// Arrange
		text := "INT. HALL\nFirst line.\n\nSecond line.\nEXT. YARD\nThird line."

		// Act
		scenes := sg.Segment(text)

		// Assert
		assert.Len(t, scenes, 2)
		assert.Equal(t, "First line. Second line.", scenes[0].Text)
		assert.Equal(t, 4, scenes[0].WordCount)
	})

	t.Run("should preserve all prose across scenes", func(t *testing.T) {
		// Arrange
		text := "SCENE 1\nalpha beta\nSCENE 2\ngamma delta\nSCENE 3\nepsilon"

		// Act
		scenes := sg.Segment(text)

		// Assert - concatenated scene bodies reconstruct the non-marker text
		var parts []string
		for _, scene := range scenes {
			parts = append(parts, scene.Text)
		}
		assert.Equal(t, "alpha beta gamma delta epsilon", strings.Join(parts, " "))
	})
}

func TestSegmenter_ReadScriptFile(t *testing.T) {
	sg := NewSegmenter()

	t.Run("should read utf-8 script text", func(t *testing.T) {
		// Arrange
		path := filepath.Join(t.TempDir(), "script.txt")
		content := "INT. CAFÉ\nShe orders coffee."
		assert.NoError(t, os.WriteFile(path, []byte(content), 0644))

		// Act
		text, err := sg.ReadScriptFile(path)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, content, text)
	})

	t.Run("should fall back to latin-1 for non-utf-8 bytes", func(t *testing.T) {
		// Arrange - 0xE9 is é in latin-1 but invalid as standalone UTF-8
		path := filepath.Join(t.TempDir(), "script.txt")
		raw := []byte("INT. CAF\xc9\nShe orders coffee.")
		assert.NoError(t, os.WriteFile(path, raw, 0644))

		// Act
		text, err := sg.ReadScriptFile(path)

		// Assert
		assert.NoError(t, err)
		assert.Contains(t, text, "CAFÉ")
	})

	t.Run("should return error for missing file", func(t *testing.T) {
		// Act
		_, err := sg.ReadScriptFile(filepath.Join(t.TempDir(), "missing.txt"))

		// Assert
		assert.Error(t, err)
	})
}

func TestSegmenter_SegmentFile(t *testing.T) {
	t.Run("should read and segment a script file", func(t *testing.T) {
		// Arrange
		sg := NewSegmenter()
		path := filepath.Join(t.TempDir(), "script.txt")
		content := "INT. KITCHEN\nShe cooks dinner.\nEXT. STREET\nHe walks away."
		assert.NoError(t, os.WriteFile(path, []byte(content), 0644))

		// Act
		scenes, err := sg.SegmentFile(path)

		// Assert
		assert.NoError(t, err)
		assert.Len(t, scenes, 2)
	})
}

func TestScene_Validate(t *testing.T) {
	t.Run("should accept a well-formed scene", func(t *testing.T) {
		// Arrange
		scene := Scene{SceneNumber: 1, Text: "She cooks dinner.", WordCount: 3, Markers: []string{}}

		// Act & Assert
		assert.NoError(t, scene.Validate())
	})

	t.Run("should reject non-positive scene number", func(t *testing.T) {
		// Arrange
		scene := Scene{SceneNumber: 0, Text: "text", WordCount: 1}

		// Act & Assert
		assert.Error(t, scene.Validate())
	})

	t.Run("should reject mismatched word count", func(t *testing.T) {
		// Arrange
		scene := Scene{SceneNumber: 1, Text: "two words", WordCount: 5}

		// Act & Assert
		assert.Error(t, scene.Validate())
	})
}
