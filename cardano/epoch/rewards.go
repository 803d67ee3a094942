// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package epoch

import "math/big"

// PotDelta is the result of one epoch's monetary expansion: how much
// moves from reserves into the reward pot, how much of that pot the
// treasury takes, and what's left to distribute to pools and delegators.
type PotDelta struct {
	Incentives       uint64
	TreasuryTax      uint64
	AvailableRewards uint64
}

var (
	dThreshold = big.NewRat(8, 10)
	one        = big.NewRat(1, 1)
)

// calculateEta implements the Shelley delegation spec's eta(blocks, d)
// (section 5.4.3): the ratio of blocks actually minted by stake pools
// against the expected count under full decentralization, capped at 1.
// d >= 0.8 short-circuits to 1 -- the federated-OBFT-node era never
// penalizes eta once the decentralization parameter has mostly retired.
func calculateEta(mintedBlocks uint32, d *big.Rat, f float64, epochLength uint64) *big.Rat {
	if d.Cmp(dThreshold) >= 0 {
		return new(big.Rat).Set(one)
	}

	fRat := new(big.Rat).SetFloat64(f)
	if fRat == nil {
		fRat = big.NewRat(0, 1)
	}
	expectedBlocks := new(big.Rat).Mul(fRat, new(big.Rat).SetUint64(epochLength))
	oneMinusD := new(big.Rat).Sub(one, d)
	expectedNonObft := new(big.Rat).Mul(expectedBlocks, oneMinusD)

	if expectedNonObft.Sign() == 0 {
		return big.NewRat(0, 1)
	}

	minted := new(big.Rat).SetUint64(uint64(mintedBlocks))
	eta := new(big.Rat).Quo(minted, expectedNonObft)
	if eta.Cmp(one) > 0 {
		return new(big.Rat).Set(one)
	}
	return eta
}

// floorUint64 floors a non-negative rational to a uint64.
func floorUint64(r *big.Rat) uint64 {
	num := new(big.Int).Set(r.Num())
	den := r.Denom()
	q := new(big.Int).Div(num, den)
	return q.Uint64()
}

// computePotDelta computes how much of this epoch's reserves expand into
// the reward pot and how much of that the treasury keeps, per the
// Shelley ledger spec:
//
//	Δr1 = floor(eta * rho * reserves)
//	rewardPot = feeSS + Δr1
//	Δt1 = floor(tau * rewardPot)
//	R = rewardPot - Δt1
func computePotDelta(reserves, feeSS uint64, rho, tau, eta *big.Rat) PotDelta {
	incentivesQ := new(big.Rat).Mul(eta, rho)
	incentivesQ.Mul(incentivesQ, new(big.Rat).SetUint64(reserves))
	deltaR1 := floorUint64(incentivesQ)

	rewardPot := feeSS + deltaR1
	treasuryTax := floorUint64(new(big.Rat).Mul(tau, new(big.Rat).SetUint64(rewardPot)))
	available := rewardPot - treasuryTax

	return PotDelta{Incentives: deltaR1, TreasuryTax: treasuryTax, AvailableRewards: available}
}

// optimalPoolRewards is the theoretical reward a pool earns at perfect
// apparent performance, per the Shelley delegation spec's R(sigma', s').
func optimalPoolRewards(epochRewards uint64, optimalPoolCount uint32, influence, relStakeOfPool, relStakeOfOwner *big.Rat) *big.Int {
	rewards := new(big.Rat).SetUint64(epochRewards)
	z0 := big.NewRat(1, int64(optimalPoolCount))

	cappedStake := minRat(relStakeOfPool, z0)
	cappedOwner := minRat(relStakeOfOwner, z0)

	onePlusInfluence := new(big.Rat).Add(one, influence)
	rewardsOverOnePlusInfluence := new(big.Rat).Quo(rewards, onePlusInfluence)

	z0MinusCapped := new(big.Rat).Sub(z0, cappedStake)
	relStakeOfSaturated := new(big.Rat).Quo(z0MinusCapped, z0)

	numer := new(big.Rat).Sub(cappedStake, new(big.Rat).Mul(cappedOwner, relStakeOfSaturated))
	saturatedWeight := new(big.Rat).Quo(numer, z0)

	mult2 := new(big.Rat).Add(cappedStake, new(big.Rat).Mul(new(big.Rat).Mul(cappedOwner, influence), saturatedWeight))

	out := new(big.Rat).Mul(rewardsOverOnePlusInfluence, mult2)
	return new(big.Int).Div(out.Num(), out.Denom())
}

func minRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) < 0 {
		return a
	}
	return b
}

// poolApparentPerformance computes p-bar: 1 if d >= 0.8 (decentralization
// mostly retired), otherwise the pool's share of blocks made against its
// share of active stake, beta/sigma_a.
func poolApparentPerformance(d *big.Rat, poolBlocks, epochBlocks uint32, poolStake, activeStake uint64) *big.Rat {
	if activeStake == 0 {
		return big.NewRat(0, 1)
	}
	sigmaA := big.NewRat(int64(poolStake), int64(activeStake))
	if sigmaA.Sign() == 0 {
		return big.NewRat(0, 1)
	}
	if d.Cmp(dThreshold) >= 0 {
		return new(big.Rat).Set(one)
	}
	denom := epochBlocks
	if denom == 0 {
		denom = 1
	}
	beta := big.NewRat(int64(poolBlocks), int64(denom))
	return new(big.Rat).Quo(beta, sigmaA)
}

// poolRewards is the total reward earned by a single pool this epoch: its
// optimal reward scaled by its apparent performance, zero if its live
// pledge has fallen short of what it declared at registration.
func poolRewards(
	epochRewards, circulatingSupply, activeStake, poolStake, declaredPledge, livePledge uint64,
	k uint32, a0, d *big.Rat, poolBlocks, epochBlocks uint32,
) uint64 {
	if livePledge < declaredPledge {
		return 0
	}
	if k == 0 {
		return 0
	}

	sigma := big.NewRat(int64(poolStake), int64(circulatingSupply))
	s := big.NewRat(int64(declaredPledge), int64(circulatingSupply))

	optimal := optimalPoolRewards(epochRewards, k, a0, sigma, s)
	pbar := poolApparentPerformance(d, poolBlocks, epochBlocks, poolStake, activeStake)

	out := new(big.Rat).Mul(new(big.Rat).SetInt(optimal), pbar)
	return floorUint64(out)
}

// poolOperatorShare splits a pool's total reward between the operator
// (fixed cost plus margin-scaled variable share) and the pool's
// delegators. If the pool's total reward doesn't clear its fixed cost,
// the operator takes all of it.
func poolOperatorShare(poolReward, fixedCost uint64, marginNum, marginDenom, poolStake, livePledge, circulatingSupply uint64) uint64 {
	if poolReward <= fixedCost {
		return poolReward
	}
	afterCost := poolReward - fixedCost

	s := big.NewRat(int64(livePledge), int64(circulatingSupply))
	sigma := big.NewRat(int64(poolStake), int64(circulatingSupply))
	sOverSigma := new(big.Rat).Quo(s, sigma)

	m := big.NewRat(int64(marginNum), int64(marginDenom))
	term := new(big.Rat).Add(m, new(big.Rat).Mul(new(big.Rat).Sub(one, m), sOverSigma))

	variable := floorUint64(new(big.Rat).Mul(new(big.Rat).SetUint64(afterCost), term))
	return fixedCost + variable
}

// delegatorReward is a delegator's share of a pool's member reward pot,
// proportional to their stake within the pool's total delegated stake.
func delegatorReward(availableRewards, totalDelegated, delegatorStake uint64) uint64 {
	if totalDelegated == 0 {
		return 0
	}
	share := new(big.Rat).Mul(
		big.NewRat(int64(delegatorStake), int64(totalDelegated)),
		new(big.Rat).SetUint64(availableRewards),
	)
	// round-half-up, matching the original's f64 .round() on the same
	// ratio (ties away from zero never occur in practice since
	// delegatorStake/totalDelegated is essentially never exactly .5 of a
	// lovelace amount, but the formula is kept faithful regardless).
	num := new(big.Int).Mul(share.Num(), big.NewInt(2))
	den := new(big.Int).Mul(share.Denom(), big.NewInt(2))
	half := new(big.Int).Set(share.Denom())
	num.Add(num, half)
	q := new(big.Int).Div(num, den)
	return q.Uint64()
}
