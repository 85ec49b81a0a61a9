package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// RSA密钥长度(位)
const KeyBits = 2048

var (
	// 密钥生成失败(熵源或后端错误)
	ErrKeyGeneration = errors.New("key generation failed")
	// 存储的密钥数据损坏或格式错误
	ErrKeyDecode = errors.New("key decode failed")
)

// GenerateKeyPair 生成一对新的RSA密钥
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return privateKey, nil
}

// EncodePrivateKeyPEM 将私钥编码为PKCS#1 PEM文本
func EncodePrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// DecodePrivateKeyPEM 从PKCS#1 PEM文本解析私钥
func DecodePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		return nil, fmt.Errorf("%w: missing RSA PRIVATE KEY block", ErrKeyDecode)
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	return key, nil
}

// EncodePublicKeyB64 将公钥编码为PKCS#1 PEM再做base64，
// 该格式存入用户记录，编码解码必须精确往返。
func EncodePublicKeyB64(key *rsa.PublicKey) string {
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(key),
	})
	return base64.StdEncoding.EncodeToString(pemBytes)
}

// DecodePublicKeyB64 从base64(PEM)解析公钥
func DecodePublicKeyB64(encoded string) (*rsa.PublicKey, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "RSA PUBLIC KEY" {
		return nil, fmt.Errorf("%w: missing RSA PUBLIC KEY block", ErrKeyDecode)
	}
	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	return key, nil
}
