package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "funcao", Fold("Função"))
	assert.Equal(t, "algebra linear", Fold("Álgebra Linear"))
	assert.Equal(t, "plain", Fold("plain"))
	assert.Equal(t, "", Fold(""))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Álgebra Linear", "algebra"))
	assert.True(t, ContainsFold("Matemática", "MATEMA"))
	assert.True(t, ContainsFold("anything", ""))
	assert.False(t, ContainsFold("História", "geo"))
}
