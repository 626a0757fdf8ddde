package ammvault

// GetVault returns the current LpVault record for a commodity.
func (v *Vault) GetVault(commodity string) (LpVault, error) {
	return v.loadVault(commodity)
}

// GetLpPosition returns one LP's position against a vault.
func (v *Vault) GetLpPosition(owner, commodity string) (LpPosition, error) {
	return v.loadLp(owner, commodity)
}

// GetPosition returns one trader's position against a vault.
func (v *Vault) GetPosition(owner string, seq uint64) (Position, error) {
	return v.loadPos(owner, seq)
}
