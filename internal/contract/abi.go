package contract

// NFTABI is the surface of the deployed collection contract this service
// consumes. The contract is external; these signatures are fixed by it.
// Older deployments expose the unit price under a different method name,
// which is why the price accessor is resolved at construction rather than
// hard-coded (see resolvePriceMethod).
const NFTABI = `[
  {"type":"function","name":"mintNFT","stateMutability":"payable","inputs":[{"name":"quantity","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"creditCardMint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"quantity","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"MAX_SUPPLY","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"PRICE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// priceMethodCandidates lists every accessor name observed across contract
// versions, in resolution order.
var priceMethodCandidates = []string{"PRICE", "price", "mintPrice", "cost", "publicPrice"}
