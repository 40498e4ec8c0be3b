package ledger

import (
	"context"
	"crypto/x509"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"evidence-registry/internal/core"
)

// FabricConfig locates the client identity and the gateway peer.
type FabricConfig struct {
	MSPID        string
	CryptoPath   string
	User         string
	PeerEndpoint string
	GatewayPeer  string
	Channel      string
	Chaincode    string
}

type FabricLedger struct {
	clientConnection *grpc.ClientConn
	gateway          *client.Gateway
	contract         *client.Contract
	mspID            string
}

// NewFabricLedger connects to the gateway peer with the identity found under
// cfg.CryptoPath (a peerOrganizations/<org> directory of the test network).
func NewFabricLedger(cfg FabricConfig) (*FabricLedger, error) {
	if _, err := os.Stat(cfg.CryptoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("crypto path does not exist: %s", cfg.CryptoPath)
	}

	userDir := path.Join(cfg.CryptoPath, "users", cfg.User, "msp")
	certPath := path.Join(userDir, "signcerts", "cert.pem")
	keyDir := path.Join(userDir, "keystore")
	tlsCertPath := path.Join(cfg.CryptoPath, "peers", cfg.GatewayPeer, "tls", "ca.crt")

	cert, err := loadCertificate(certPath)
	if err != nil {
		return nil, err
	}
	key, err := loadPrivateKey(keyDir)
	if err != nil {
		return nil, err
	}

	id, err := identity.NewX509Identity(cfg.MSPID, cert)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	transportCreds, err := credentials.NewClientTLSFromFile(tlsCertPath, cfg.GatewayPeer)
	if err != nil {
		return nil, fmt.Errorf("failed to load peer tls certificate: %w", err)
	}
	conn, err := grpc.NewClient(cfg.PeerEndpoint, grpc.WithTransportCredentials(transportCreds))
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway peer: %w", err)
	}

	gateway, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(5*time.Second),
		client.WithEndorseTimeout(15*time.Second),
		client.WithSubmitTimeout(5*time.Second),
		client.WithCommitStatusTimeout(1*time.Minute),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect gateway: %w", err)
	}

	return &FabricLedger{
		clientConnection: conn,
		gateway:          gateway,
		contract:         gateway.GetNetwork(cfg.Channel).GetContract(cfg.Chaincode),
		mspID:            cfg.MSPID,
	}, nil
}

// Read evaluates ReadAsset for key. Evaluation does not create a block.
func (f *FabricLedger) Read(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result, err := f.contract.EvaluateTransaction("ReadAsset", key)
	if err != nil {
		return "", fmt.Errorf("failed to read asset: %w", err)
	}
	return string(result), nil
}

// Write submits CreateAsset for key and blocks until the peer reports the
// commit status.
func (f *FabricLedger) Write(ctx context.Context, key string, metadata string) (core.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return core.Receipt{}, err
	}
	proposal, err := f.contract.NewProposal("CreateAsset",
		client.WithArguments(key, metadata, "1", f.mspID, "0"))
	if err != nil {
		return core.Receipt{}, fmt.Errorf("failed to create proposal: %w", err)
	}

	transaction, err := proposal.Endorse()
	if err != nil {
		return core.Receipt{}, fmt.Errorf("failed to endorse: %w", err)
	}

	commit, err := transaction.Submit()
	if err != nil {
		return core.Receipt{}, fmt.Errorf("failed to submit: %w", err)
	}

	status, err := commit.Status()
	if err != nil {
		return core.Receipt{}, fmt.Errorf("failed to get commit status: %w", err)
	}
	if !status.Successful {
		return core.Receipt{}, fmt.Errorf("transaction %s failed with status code: %d", status.TransactionID, status.Code)
	}

	return core.Receipt{TxID: transaction.TransactionID(), BlockNumber: status.BlockNumber}, nil
}

func (f *FabricLedger) Close() {
	f.gateway.Close()
	f.clientConnection.Close()
}

func loadCertificate(filename string) (*x509.Certificate, error) {
	certificatePEM, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}
	return identity.CertificateFromPEM(certificatePEM)
}

func loadPrivateKey(dir string) (interface{}, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no private key in %s", dir)
	}
	privateKeyPEM, err := os.ReadFile(path.Join(dir, files[0].Name()))
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	return identity.PrivateKeyFromPEM(privateKeyPEM)
}
