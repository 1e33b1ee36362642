// Package contract talks to the CryptoPet NFT contract: view calls through a
// read handle, state changes through a write handle bound to the wallet.
package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names.
const (
	MethodGetPetsByOwner  = "getPetsByOwner"
	MethodGetPetStatsView = "getPetStatsView"
	MethodGetPetType      = "getPetType"
	MethodTokenURI        = "tokenURI"
	MethodMintPrice       = "MINT_PRICE"
	MethodMintPet         = "mintPet"
	MethodFeedPet         = "feedPet"
	MethodPlayWithPet     = "playWithPet"
)

// PetABI is the parsed contract interface.
var PetABI abi.ABI

func init() {
	a, err := abi.JSON(strings.NewReader(PetABIJSON))
	if err != nil {
		panic(err)
	}
	PetABI = a
}

// PetABIJSON is the subset of the contract ABI the client uses.
const PetABIJSON = `[
  {
    "type": "function",
    "name": "getPetsByOwner",
    "stateMutability": "view",
    "inputs": [{"name": "owner", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256[]"}]
  },
  {
    "type": "function",
    "name": "getPetStatsView",
    "stateMutability": "view",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": [
      {"name": "name", "type": "string"},
      {"name": "happiness", "type": "uint256"},
      {"name": "hunger", "type": "uint256"},
      {"name": "birthTime", "type": "uint256"},
      {"name": "lastUpdate", "type": "uint256"},
      {"name": "level", "type": "uint256"},
      {"name": "xp", "type": "uint256"}
    ]
  },
  {
    "type": "function",
    "name": "getPetType",
    "stateMutability": "view",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": [{"name": "", "type": "uint8"}]
  },
  {
    "type": "function",
    "name": "tokenURI",
    "stateMutability": "view",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": [{"name": "", "type": "string"}]
  },
  {
    "type": "function",
    "name": "MINT_PRICE",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "mintPet",
    "stateMutability": "payable",
    "inputs": [{"name": "name", "type": "string"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "feedPet",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "playWithPet",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": []
  }
]`
