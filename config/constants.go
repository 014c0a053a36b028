// Copyright (c) 2022-present, rocksplicator contributors
// All rights reserved. Licensed under the BSD 3-Clause License. See LICENSE file in the project root for full license information.

//go:build !linux

package config

var MetadataDir = ".rocksplicator_meta"
