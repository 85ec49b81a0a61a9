package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
)

const (
	aesKeySize = 32 // AES-256
	ivSize     = aes.BlockSize
)

var (
	// 密钥或IV生成、分组密码初始化失败
	ErrCipherSetup = errors.New("cipher setup failed")
	// RSA解包对称密钥失败(密钥不匹配或密文损坏)
	ErrKeyUnwrap = errors.New("key unwrap failed")
	// 对称解密的填充无效(密钥错误或密文被篡改)
	ErrPadding = errors.New("invalid padding")
)

// Encrypt 混合加密：随机生成256位AES密钥和128位IV，
// 用AES-256-CBC/PKCS#7加密数据，再用收件人公钥(PKCS1v15)包裹AES密钥。
// IV不是秘密，与密文一起存储；密钥和IV每次调用都重新生成。
func Encrypt(plain []byte, recipientKey *rsa.PublicKey) (wrappedKey, ciphertext, iv []byte, err error) {
	aesKey := make([]byte, aesKeySize)
	if _, err := rand.Read(aesKey); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrCipherSetup, err)
	}
	iv = make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrCipherSetup, err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrCipherSetup, err)
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	wrappedKey, err = rsa.EncryptPKCS1v15(rand.Reader, recipientKey, aesKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrCipherSetup, err)
	}

	return wrappedKey, ciphertext, iv, nil
}

// Decrypt 用私钥解包AES密钥，再以CBC/PKCS#7还原明文。
// ErrKeyUnwrap与ErrPadding需区分记录日志，但对调用方都表现为解密失败。
func Decrypt(wrappedKey, ciphertext, iv []byte, privateKey *rsa.PrivateKey) ([]byte, error) {
	aesKey, err := rsa.DecryptPKCS1v15(rand.Reader, privateKey, wrappedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnwrap, err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCipherSetup, err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: bad iv length %d", ErrCipherSetup, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad ciphertext length %d", ErrPadding, len(ciphertext))
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded, aes.BlockSize)
}

// PKCS#7填充：总是追加1..blockSize个字节，值等于填充长度
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: bad padded length %d", ErrPadding, len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, fmt.Errorf("%w: bad pad byte %d", ErrPadding, padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrPadding
		}
	}
	return data[:len(data)-padLen], nil
}
