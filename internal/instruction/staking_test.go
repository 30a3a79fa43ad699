package instruction

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorDiscriminator(t *testing.T) {
	assert.Equal(t, [8]byte{242, 35, 198, 137, 82, 225, 242, 182}, AnchorDiscriminator("global", "deposit"))
}

func TestDepositData(t *testing.T) {
	data := DepositData(1_500_000_000)
	require.Len(t, data, 16)
	assert.Equal(t, []byte{242, 35, 198, 137, 82, 225, 242, 182}, data[:8])
	assert.Equal(t, uint64(1_500_000_000), binary.LittleEndian.Uint64(data[8:]))
}

func TestLiquidStakingDepositAccountOrder(t *testing.T) {
	accounts := MarinadeMainnet()
	mintTo, err := FindAssociatedTokenAddress(alice, TokenProgramId, accounts.MsolMint)
	require.NoError(t, err)

	want := []struct {
		key      solana.PublicKey
		writable bool
		signer   bool
	}{
		{accounts.State, true, false},
		{accounts.MsolMint, true, false},
		{accounts.LiqPoolSolLeg, true, false},
		{accounts.LiqPoolMsolLeg, true, false},
		{accounts.LiqPoolMsolLegAuthority, false, false},
		{accounts.Reserve, true, false},
		{alice, true, true},
		{mintTo, true, false},
		{accounts.MsolMintAuthority, false, false},
		{SystemProgramId, false, false},
		{TokenProgramId, false, false},
	}

	for _, lamports := range []uint64{1, 10_000_000, 1_000_000_000, 1_000_000 * 1_000_000_000} {
		t.Run(fmt.Sprintf("lamports_%d", lamports), func(t *testing.T) {
			ix := LiquidStakingDeposit(accounts, alice, mintTo, lamports)
			assert.True(t, ix.ProgramID().Equals(accounts.ProgramId))

			metas := ix.Accounts()
			require.Len(t, metas, DepositAccountCount)
			for i, w := range want {
				assert.Truef(t, metas[i].PublicKey.Equals(w.key), "account %d", i)
				assert.Equalf(t, w.writable, metas[i].IsWritable, "account %d writable", i)
				assert.Equalf(t, w.signer, metas[i].IsSigner, "account %d signer", i)
			}
			assert.True(t, metas[DepositSignerIndex].PublicKey.Equals(alice))
			assert.True(t, metas[DepositMintToIndex].PublicKey.Equals(mintTo))

			data, err := ix.Data()
			require.NoError(t, err)
			assert.Equal(t, lamports, binary.LittleEndian.Uint64(data[8:]))
		})
	}
}

func TestLiquidStakingDepositSet(t *testing.T) {
	accounts := MarinadeMainnet()
	set, err := LiquidStakingDepositSet(accounts, alice, 42)
	require.NoError(t, err)
	require.Len(t, set, 2)

	assert.True(t, set[0].ProgramID().Equals(AssociatedTokenAccountProgramId))
	assert.True(t, set[1].ProgramID().Equals(accounts.ProgramId))

	ata := set[0].Accounts()[1].PublicKey
	assert.True(t, set[1].Accounts()[DepositMintToIndex].PublicKey.Equals(ata))
}

func TestDeriveLiquidStakingAccountsMatchesMainnet(t *testing.T) {
	mainnet := MarinadeMainnet()

	derived, err := DeriveLiquidStakingAccounts(mainnet.ProgramId, mainnet.State, mainnet.MsolMint, mainnet.LiqPoolMsolLeg)
	require.NoError(t, err)
	assert.Equal(t, mainnet, derived)
}
