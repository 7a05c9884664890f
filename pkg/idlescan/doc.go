// Copyright 2022 The pagetier Authors. All Rights Reserved.
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

// Package idlescan samples the idle-page state of a process and
// accumulates per-page access weights.
//
// The scanner walks the anonymous mappings of a target process,
// reads the kernel's per-process idle-page stream for each of them,
// and folds the decoded records into an address-ordered map of page
// references. Repeating the walk over a number of passes turns the
// map into a histogram of observed accesses that a tiering policy
// can threshold into hot and cold pages.
package idlescan
