package instruction

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	bob   = solana.MustPublicKeyFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N")
)

func TestTransferLayout(t *testing.T) {
	ix := Transfer(alice, bob, 50_000_000)

	assert.True(t, ix.ProgramID().Equals(SystemProgramId))

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 12)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, uint64(50_000_000), binary.LittleEndian.Uint64(data[4:12]))

	accounts := ix.Accounts()
	require.Len(t, accounts, 2)
	assert.True(t, accounts[0].PublicKey.Equals(alice))
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.True(t, accounts[1].PublicKey.Equals(bob))
	assert.False(t, accounts[1].IsSigner)
	assert.True(t, accounts[1].IsWritable)
}

func TestMemoLayout(t *testing.T) {
	ix := Memo(alice, "gro:sunflower:v1")

	assert.True(t, ix.ProgramID().Equals(MemoProgramId))

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("gro:sunflower:v1"), data)

	accounts := ix.Accounts()
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].PublicKey.Equals(alice))
	assert.True(t, accounts[0].IsSigner)
	assert.False(t, accounts[0].IsWritable)
}

func TestFindAssociatedTokenAddress(t *testing.T) {
	msol := MarinadeMainnet().MsolMint

	ata, err := FindAssociatedTokenAddress(alice, TokenProgramId, msol)
	require.NoError(t, err)
	assert.Equal(t, "CRYd2miDXf7fS6xLFYCh1zTc5yeuMzsGSAZfRFKVyug", ata.String())

	viaLibrary, _, err := solana.FindAssociatedTokenAddress(alice, msol)
	require.NoError(t, err)
	assert.True(t, ata.Equals(viaLibrary))
}

func TestCreateAssociatedTokenAccountIdempotent(t *testing.T) {
	msol := MarinadeMainnet().MsolMint

	ix, ata, err := CreateAssociatedTokenAccountIdempotent(alice, alice, msol)
	require.NoError(t, err)

	assert.True(t, ix.ProgramID().Equals(AssociatedTokenAccountProgramId))

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	want := []struct {
		key      solana.PublicKey
		writable bool
		signer   bool
	}{
		{alice, true, true},
		{ata, true, false},
		{alice, false, false},
		{msol, false, false},
		{SystemProgramId, false, false},
		{TokenProgramId, false, false},
	}
	accounts := ix.Accounts()
	require.Len(t, accounts, len(want))
	for i, w := range want {
		assert.Truef(t, accounts[i].PublicKey.Equals(w.key), "account %d", i)
		assert.Equalf(t, w.writable, accounts[i].IsWritable, "account %d writable", i)
		assert.Equalf(t, w.signer, accounts[i].IsSigner, "account %d signer", i)
	}
}
